// Package clarify implements the clarification stage: it turns a loose user
// request into a structured research brief through bounded rounds of
// follow-up questions, and classifies the user's verdict on the presented
// brief.
package clarify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	deepresearch "github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/session"
)

// DefaultMaxQuestions caps the clarifying questions asked in one round.
const DefaultMaxQuestions = 3

// Result is the outcome of one clarification round. Either Questions carries
// follow-ups for the user, or Ready is true and Draft is complete enough to
// present for approval.
type Result struct {
	Questions []string
	Draft     *brief.Brief
	Ready     bool
}

// Clarifier drives clarification rounds against a generation model.
type Clarifier struct {
	model        llms.Model
	maxQuestions int
	retry        deepresearch.Policy
	logger       log.Logger
}

// Option configures a Clarifier.
type Option func(*Clarifier)

// WithMaxQuestions sets how many questions one round may ask.
func WithMaxQuestions(n int) Option {
	return func(c *Clarifier) {
		if n > 0 {
			c.maxQuestions = n
		}
	}
}

// WithRetryPolicy sets the retry policy for generation calls.
func WithRetryPolicy(p deepresearch.Policy) Option {
	return func(c *Clarifier) {
		c.retry = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Clarifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Clarifier backed by the given model.
func New(model llms.Model, opts ...Option) (*Clarifier, error) {
	if model == nil {
		return nil, errors.New("clarify: model is required")
	}

	c := &Clarifier{
		model:        model,
		maxQuestions: DefaultMaxQuestions,
		retry:        deepresearch.DefaultPolicy(),
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// stageOutput is the JSON contract the model answers with.
type stageOutput struct {
	Status    string       `json:"status"`
	Questions []string     `json:"questions"`
	Brief     *briefOutput `json:"brief"`
}

type briefOutput struct {
	Topic        string   `json:"topic"`
	Objectives   []string `json:"objectives"`
	KeyQuestions []string `json:"key_questions"`
	Constraints  []string `json:"constraints"`
}

// Run performs one clarification round over the conversation and the current
// draft. It never mutates its inputs; the same inputs produce the same
// prompt. Malformed model output gets one corrective re-prompt before the
// round fails wrapping ErrGenerationUnavailable.
func (c *Clarifier) Run(ctx context.Context, conversation []session.Turn, draft *brief.Brief) (*Result, error) {
	messages := buildMessages(conversation, draft, c.maxQuestions)

	raw, err := c.generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	out, parseErr := parseStageOutput(raw)
	if parseErr != nil {
		c.logger.Warn("clarification output malformed, re-prompting: %v", parseErr)

		messages = append(messages,
			llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{llms.TextPart(raw)}},
			llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(correctivePrompt)}},
		)

		raw, err = c.generate(ctx, messages)
		if err != nil {
			return nil, err
		}
		out, parseErr = parseStageOutput(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: clarification output unusable after re-prompt: %v",
				deepresearch.ErrGenerationUnavailable, parseErr)
		}
	}

	return c.buildResult(out, draft), nil
}

// generate calls the model under the retry policy. Context errors pass
// through unwrapped so cancellation stays recognizable to callers.
func (c *Clarifier) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	var content string
	err := deepresearch.Retry(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.model.GenerateContent(ctx, messages,
			llms.WithTemperature(0.3),
			llms.WithJSONMode(),
		)
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

func (c *Clarifier) buildResult(out *stageOutput, prior *brief.Brief) *Result {
	var draft *brief.Brief
	if out.Brief != nil {
		draft = (&brief.Brief{
			Topic:        out.Brief.Topic,
			Objectives:   out.Brief.Objectives,
			KeyQuestions: out.Brief.KeyQuestions,
			Constraints:  out.Brief.Constraints,
		}).Normalize()
	} else {
		draft = prior.Clone()
	}

	if out.Status == statusReady {
		if draft.Validate() == nil {
			return &Result{Draft: draft, Ready: true}
		}
		// Ready without a topic is never honored.
		c.logger.Warn("model declared ready without a topic, asking for one")
		return &Result{
			Questions: []string{topicQuestion},
			Draft:     draft,
		}
	}

	questions := cleanQuestions(out.Questions)
	if len(questions) > c.maxQuestions {
		questions = questions[:c.maxQuestions]
	}
	return &Result{Questions: questions, Draft: draft}
}

func buildMessages(conversation []session.Turn, draft *brief.Brief, maxQuestions int) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(conversation)+1)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt(draft, maxQuestions))},
	})

	for _, turn := range conversation {
		role := llms.ChatMessageTypeHuman
		if turn.Role == session.RoleAgent {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(turn.Content)},
		})
	}

	return messages
}

func parseStageOutput(text string) (*stageOutput, error) {
	var out stageOutput
	if err := json.Unmarshal([]byte(extractJSON(text)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	switch out.Status {
	case statusReady:
		if out.Brief == nil {
			return nil, errors.New("status ready without a brief")
		}
	case statusNeedMore:
		if len(cleanQuestions(out.Questions)) == 0 {
			return nil, errors.New("status need_more without questions")
		}
	default:
		return nil, fmt.Errorf("unknown status %q", out.Status)
	}

	return &out, nil
}

func cleanQuestions(questions []string) []string {
	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	return cleaned
}

var (
	codeBlockRegex  = regexp.MustCompile("(?s)```(?:json)?\\s*({.*?})\\s*```")
	jsonObjectRegex = regexp.MustCompile("(?s){.*}")
)

// extractJSON extracts a JSON object from a reply that might wrap it in
// markdown code blocks.
func extractJSON(text string) string {
	if matches := codeBlockRegex.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	if match := jsonObjectRegex.FindString(text); match != "" {
		return match
	}
	return text
}
