// Package research runs the research stage: it plans search queries from an
// approved brief, gathers findings from a search client, and composes them
// into a cited report.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	deepresearch "github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/search"
)

const (
	// DefaultMaxIterations caps the number of search calls in one run.
	DefaultMaxIterations = 10
	// DefaultQueriesPerQuestion caps how many queries are planned per key question.
	DefaultQueriesPerQuestion = 3
	// DefaultMinFindings is the minimum number of findings a run must gather.
	DefaultMinFindings = 1

	// snippetFloor is the snippet length in runes below which the page body
	// is fetched to enrich the finding.
	snippetFloor = 200
)

// Researcher executes the research stage against a model and a search client.
type Researcher struct {
	model              llms.Model
	search             search.Client
	fetcher            *search.Fetcher
	maxIterations      int
	queriesPerQuestion int
	minFindings        int
	retry              deepresearch.Policy
	logger             log.Logger
}

// Option configures a Researcher.
type Option func(*Researcher)

// WithMaxIterations caps the number of search calls in one run.
func WithMaxIterations(n int) Option {
	return func(r *Researcher) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithQueriesPerQuestion caps how many planned queries are kept per key question.
func WithQueriesPerQuestion(n int) Option {
	return func(r *Researcher) {
		if n > 0 {
			r.queriesPerQuestion = n
		}
	}
}

// WithMinFindings sets the minimum number of findings a run must gather.
func WithMinFindings(n int) Option {
	return func(r *Researcher) {
		if n > 0 {
			r.minFindings = n
		}
	}
}

// WithFetcher enables page fetching to enrich findings with thin snippets.
func WithFetcher(f *search.Fetcher) Option {
	return func(r *Researcher) {
		r.fetcher = f
	}
}

// WithRetryPolicy overrides the retry policy for model and search calls.
func WithRetryPolicy(p deepresearch.Policy) Option {
	return func(r *Researcher) {
		r.retry = p
	}
}

// WithLogger overrides the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Researcher) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Researcher backed by the given model and search client.
func New(model llms.Model, client search.Client, opts ...Option) (*Researcher, error) {
	if model == nil {
		return nil, errors.New("research: model is required")
	}
	if client == nil {
		return nil, errors.New("research: search client is required")
	}
	r := &Researcher{
		model:              model,
		search:             client,
		maxIterations:      DefaultMaxIterations,
		queriesPerQuestion: DefaultQueriesPerQuestion,
		minFindings:        DefaultMinFindings,
		retry:              deepresearch.DefaultPolicy(),
		logger:             log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Gather plans queries for each key question of the brief, in brief order,
// and executes them against the search client until the iteration cap is
// reached. Findings are deduplicated by URL. A run where every query fails
// returns ErrSearchUnavailable; a run that gathers fewer findings than the
// minimum returns ErrInsufficientFindings.
func (r *Researcher) Gather(ctx context.Context, b *brief.Brief) ([]Finding, error) {
	if b == nil {
		return nil, errors.New("research: brief is required")
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("research: invalid brief: %w", err)
	}

	questions := b.KeyQuestions
	planned := true
	if len(questions) == 0 {
		// Nothing to plan against, search the topic directly.
		questions = []string{b.Topic}
		planned = false
	}

	var (
		findings  []Finding
		seen      = make(map[string]bool)
		searches  int
		attempted int
		succeeded int
	)

	for _, question := range questions {
		if searches >= r.maxIterations {
			r.logger.Warn("research: search budget exhausted after %d calls, skipping remaining questions", searches)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		queries := []string{question}
		if planned {
			queries = r.planQueries(ctx, b, question)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, query := range queries {
			if searches >= r.maxIterations {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			searches++
			attempted++

			results, err := r.runSearch(ctx, query)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				r.logger.Warn("research: query %q abandoned: %v", query, err)
				continue
			}
			succeeded++

			for _, res := range results {
				if res.URL == "" || seen[res.URL] {
					continue
				}
				seen[res.URL] = true
				findings = append(findings, Finding{
					Query:   query,
					Title:   res.Title,
					URL:     res.URL,
					Snippet: res.Snippet,
				})
			}
		}
	}

	if attempted > 0 && succeeded == 0 {
		return nil, fmt.Errorf("%w: all %d queries failed", deepresearch.ErrSearchUnavailable, attempted)
	}
	if len(findings) < r.minFindings {
		return nil, fmt.Errorf("%w: gathered %d findings, need at least %d",
			deepresearch.ErrInsufficientFindings, len(findings), r.minFindings)
	}

	r.enrich(ctx, findings)

	r.logger.Info("research: gathered %d findings from %d searches", len(findings), searches)
	return findings, nil
}

// Compose synthesizes the findings into a report with one section per
// objective (falling back to key questions, then a single overview). Sections
// may cite only finding URLs; an unusable model reply gets one corrective
// re-prompt before the run fails with ErrGenerationUnavailable.
func (r *Researcher) Compose(ctx context.Context, b *brief.Brief, findings []Finding) (*Report, error) {
	if b == nil {
		return nil, errors.New("research: brief is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(findings) == 0 {
		return nil, fmt.Errorf("%w: no findings to compose from", deepresearch.ErrInsufficientFindings)
	}

	titles := sectionTitles(b)
	allowed := make(map[string]bool, len(findings))
	for _, f := range findings {
		allowed[f.URL] = true
	}

	messages := buildComposeMessages(b, findings, titles)
	raw, err := r.generate(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, err
	}

	report, parseErr := parseReport(raw, b.Topic, titles, allowed)
	if parseErr != nil {
		r.logger.Warn("research: report rejected, re-prompting: %v", parseErr)
		messages = append(messages,
			llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{llms.TextPart(raw)}},
			llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(correctiveComposePrompt(parseErr))}},
		)
		raw, err = r.generate(ctx, messages, llms.WithJSONMode())
		if err != nil {
			return nil, err
		}
		report, parseErr = parseReport(raw, b.Topic, titles, allowed)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: report unusable after re-prompt: %v", deepresearch.ErrGenerationUnavailable, parseErr)
		}
	}

	report.GeneratedAt = time.Now().UTC()
	return report, nil
}

// Research runs the full stage, Gather then Compose.
func (r *Researcher) Research(ctx context.Context, b *brief.Brief) (*Report, error) {
	findings, err := r.Gather(ctx, b)
	if err != nil {
		return nil, err
	}
	return r.Compose(ctx, b, findings)
}

// planQueries asks the model for search queries answering one key question.
// An unusable reply gets one corrective re-prompt; if that also fails the
// question itself is used as the query.
func (r *Researcher) planQueries(ctx context.Context, b *brief.Brief, question string) []string {
	messages := buildPlanningMessages(b, question, r.queriesPerQuestion)

	raw, err := r.generate(ctx, messages)
	if err != nil {
		r.logger.Warn("research: query planning failed for %q, using the question as-is: %v", question, err)
		return []string{question}
	}

	queries, parseErr := parseQueries(raw)
	if parseErr != nil {
		messages = append(messages,
			llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{llms.TextPart(raw)}},
			llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(correctiveQueriesPrompt)}},
		)
		raw, err = r.generate(ctx, messages)
		if err == nil {
			queries, parseErr = parseQueries(raw)
		}
		if err != nil || parseErr != nil {
			r.logger.Warn("research: query planning unusable for %q, using the question as-is", question)
			return []string{question}
		}
	}

	if len(queries) > r.queriesPerQuestion {
		queries = queries[:r.queriesPerQuestion]
	}
	return queries
}

// runSearch executes one query under the retry policy.
func (r *Researcher) runSearch(ctx context.Context, query string) ([]search.Result, error) {
	var results []search.Result
	err := deepresearch.Retry(ctx, r.retry, func(ctx context.Context) error {
		var err error
		results, err = r.search.Search(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// enrich fetches the page body for findings whose snippet is too thin to
// write from. Fetch failures leave the original snippet in place.
func (r *Researcher) enrich(ctx context.Context, findings []Finding) {
	if r.fetcher == nil {
		return
	}
	for i := range findings {
		if len([]rune(findings[i].Snippet)) >= snippetFloor {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		body, err := r.fetcher.Fetch(ctx, findings[i].URL)
		if err != nil {
			r.logger.Debug("research: could not enrich %s: %v", findings[i].URL, err)
			continue
		}
		if len(body) > len(findings[i].Snippet) {
			findings[i].Snippet = body
		}
	}
}

// generate calls the model under the retry policy at a low temperature.
// Context errors pass through untouched; anything else is reported as
// ErrGenerationUnavailable.
func (r *Researcher) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	callOpts := append([]llms.CallOption{llms.WithTemperature(0.2)}, opts...)

	var content string
	err := deepresearch.Retry(ctx, r.retry, func(ctx context.Context) error {
		resp, err := r.model.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty model response")
		}
		content = resp.Choices[0].Content
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", deepresearch.ErrGenerationUnavailable, err)
	}
	return content, nil
}

func parseQueries(text string) ([]string, error) {
	payload := extractJSONArray(text)

	var queries []string
	if err := json.Unmarshal([]byte(payload), &queries); err != nil {
		// Some models wrap the array in an object even when asked not to.
		var wrapped struct {
			Queries []string `json:"queries"`
		}
		if err2 := json.Unmarshal([]byte(extractJSONObject(text)), &wrapped); err2 != nil || len(wrapped.Queries) == 0 {
			return nil, fmt.Errorf("failed to parse queries: %w", err)
		}
		queries = wrapped.Queries
	}

	cleaned := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("no usable queries in reply")
	}
	return cleaned, nil
}

func parseReport(text, topic string, titles []string, allowed map[string]bool) (*Report, error) {
	var out struct {
		Sections []Section `json:"sections"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse report JSON: %w", err)
	}
	if len(out.Sections) != len(titles) {
		return nil, fmt.Errorf("expected %d sections, got %d", len(titles), len(out.Sections))
	}
	for i, sec := range out.Sections {
		if strings.TrimSpace(sec.Title) == "" || strings.TrimSpace(sec.Body) == "" {
			return nil, fmt.Errorf("section %d is missing a title or body", i+1)
		}
		if len(sec.Citations) == 0 {
			return nil, fmt.Errorf("section %q cites no sources", sec.Title)
		}
		for _, url := range sec.Citations {
			if !allowed[url] {
				return nil, fmt.Errorf("section %q cites %s, which is not a finding", sec.Title, url)
			}
		}
	}
	return &Report{Topic: topic, Sections: out.Sections}, nil
}

var (
	fencedObjectRegex = regexp.MustCompile("(?s)```(?:json)?\\s*({.*?})\\s*```")
	fencedArrayRegex  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	jsonObjectRegex   = regexp.MustCompile("(?s){.*}")
	jsonArrayRegex    = regexp.MustCompile("(?s)\\[.*\\]")
)

func extractJSONObject(text string) string {
	if m := fencedObjectRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := jsonObjectRegex.FindString(text); m != "" {
		return m
	}
	return text
}

func extractJSONArray(text string) string {
	if m := fencedArrayRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := jsonArrayRegex.FindString(text); m != "" {
		return m
	}
	return text
}
