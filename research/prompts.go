package research

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/deepresearch/brief"
)

const correctiveQueriesPrompt = `Your previous reply was not a valid JSON array of query strings. Return ONLY the JSON array, no additional text.`

func correctiveComposePrompt(reason error) string {
	return fmt.Sprintf(`Your previous reply was not acceptable: %v. Respond again in the required JSON format, producing the requested sections and citing only the provided source URLs. Return ONLY the JSON object, no additional text.`, reason)
}

// buildPlanningMessages asks for search queries answering one key question.
func buildPlanningMessages(b *brief.Brief, question string, maxQueries int) []llms.MessageContent {
	var sb strings.Builder
	sb.WriteString("You are planning web searches for a research project.\n\n")
	fmt.Fprintf(&sb, "Research topic: %s\n", b.Topic)
	if len(b.Constraints) > 0 {
		fmt.Fprintf(&sb, "Constraints: %s\n", strings.Join(b.Constraints, "; "))
	}
	fmt.Fprintf(&sb, "\nKey question to answer:\n%s\n\n", question)
	fmt.Fprintf(&sb, `Generate up to %d distinct web search queries that together answer the key question. Cover different angles and phrasings.

Respond with a JSON array of query strings:
["first query", "second query"]

Rules:
1. Each query must be a short, self-contained search string
2. Respect the constraints
3. Return ONLY the JSON array, no additional text`, maxQueries)

	return []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(sb.String())},
	}}
}

// buildComposeMessages asks for the report sections, one per title, grounded
// in the findings.
func buildComposeMessages(b *brief.Brief, findings []Finding, titles []string) []llms.MessageContent {
	const system = `You are an expert research writer. You write factual, well-structured report sections from the search findings you are given, citing only the provided source URLs.`

	var sb strings.Builder
	sb.WriteString("Research brief:\n")
	fmt.Fprintf(&sb, "Topic: %s\n", b.Topic)
	for _, obj := range b.Objectives {
		fmt.Fprintf(&sb, "Objective: %s\n", obj)
	}
	for _, q := range b.KeyQuestions {
		fmt.Fprintf(&sb, "Key question: %s\n", q)
	}
	for _, c := range b.Constraints {
		fmt.Fprintf(&sb, "Constraint: %s\n", c)
	}

	sb.WriteString("\nFindings:\n")
	for i, f := range findings {
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   %s\n", i+1, f.Title, f.URL, f.Snippet)
	}

	sb.WriteString("\nWrite the report with exactly one section per entry in this list, in order:\n")
	for i, title := range titles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
	}

	fmt.Fprintf(&sb, `
Respond in the following JSON format:
{
  "sections": [
    {"title": "section title", "body": "several paragraphs of markdown", "citations": ["https://source-url"]}
  ]
}

Rules:
1. Produce exactly %d sections, in the listed order
2. Every citation must be one of the finding URLs above
3. Every section must cite at least one source
4. Base every claim on the findings
5. Return ONLY the JSON object, no additional text`, len(titles))

	return []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(system)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(sb.String())}},
	}
}

// sectionTitles picks what the report's sections cover: objectives when the
// brief has them, key questions otherwise, a single overview as last resort.
func sectionTitles(b *brief.Brief) []string {
	if len(b.Objectives) > 0 {
		return b.Objectives
	}
	if len(b.KeyQuestions) > 0 {
		return b.KeyQuestions
	}
	return []string{"Overview"}
}
