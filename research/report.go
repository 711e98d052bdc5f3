package research

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Finding is one search hit, attributed to the query that produced it.
type Finding struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Section is one report section. Citations hold the URLs of the
// findings the section draws on.
type Section struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Citations []string `json:"citations,omitempty"`
}

// Report is the final research artifact.
type Report struct {
	Topic       string    `json:"topic"`
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Clone returns a deep copy.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := &Report{Topic: r.Topic, GeneratedAt: r.GeneratedAt}
	out.Sections = make([]Section, len(r.Sections))
	for i, sec := range r.Sections {
		out.Sections[i] = Section{Title: sec.Title, Body: sec.Body}
		if sec.Citations != nil {
			out.Sections[i].Citations = append([]string(nil), sec.Citations...)
		}
	}
	return out
}

// Markdown renders the report as a Markdown document: the topic as the
// title, one heading per section, and a source list per section.
func (r *Report) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Topic)
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "*Generated %s*\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	for _, sec := range r.Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", sec.Title, strings.TrimSpace(sec.Body))
		if len(sec.Citations) > 0 {
			sb.WriteString("Sources:\n\n")
			for _, url := range sec.Citations {
				fmt.Fprintf(&sb, "- <%s>\n", url)
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// HTML renders the report to sanitized HTML.
func (r *Report) HTML() []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(r.Markdown()))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	opts := html.RendererOptions{Flags: htmlFlags}
	renderer := html.NewRenderer(opts)

	return bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))
}
