package clarify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	deepresearch "github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/session"
)

// MockLLM implements llms.Model for testing. Each call consumes the next
// scripted response or error; the received messages are recorded.
type MockLLM struct {
	responses []string
	errs      []error
	calls     [][]llms.MessageContent
	callCount int
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls = append(m.calls, messages)
	i := m.callCount
	m.callCount++

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "No more responses"}},
		}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[i]}},
	}, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

const needMoreJSON = `{
	"status": "need_more",
	"questions": ["Which regions should the research cover?", "What time horizon matters most?"],
	"brief": {"topic": "renewable energy trends", "objectives": [], "key_questions": [], "constraints": []}
}`

const readyJSON = `{
	"status": "ready",
	"questions": [],
	"brief": {
		"topic": "renewable energy trends",
		"objectives": ["Assess solar growth", "Assess wind growth"],
		"key_questions": ["What drives adoption?"],
		"constraints": ["Focus on Europe"]
	}
}`

func userTurn(content string) session.Turn {
	return session.Turn{Role: session.RoleUser, Content: content, At: time.Now()}
}

func agentTurn(content string) session.Turn {
	return session.Turn{Role: session.RoleAgent, Content: content, At: time.Now()}
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	c, err := New(&MockLLM{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxQuestions, c.maxQuestions)
}

func TestRunNeedMore(t *testing.T) {
	mock := &MockLLM{responses: []string{needMoreJSON}}
	c, err := New(mock)
	require.NoError(t, err)

	conversation := []session.Turn{userTurn("I want to know about renewable energy trends")}

	result, err := c.Run(context.Background(), conversation, nil)
	require.NoError(t, err)

	assert.False(t, result.Ready)
	assert.Len(t, result.Questions, 2)
	assert.Contains(t, result.Questions[0], "regions")
	require.NotNil(t, result.Draft)
	assert.Equal(t, "renewable energy trends", result.Draft.Topic)
}

func TestRunReady(t *testing.T) {
	mock := &MockLLM{responses: []string{readyJSON}}
	c, err := New(mock)
	require.NoError(t, err)

	conversation := []session.Turn{
		userTurn("I want to know about renewable energy trends"),
		agentTurn("Which regions should the research cover?"),
		userTurn("Europe, solar and wind, next five years"),
	}

	result, err := c.Run(context.Background(), conversation, nil)
	require.NoError(t, err)

	assert.True(t, result.Ready)
	assert.Empty(t, result.Questions)
	require.NotNil(t, result.Draft)
	assert.Equal(t, "renewable energy trends", result.Draft.Topic)
	assert.Equal(t, []string{"Assess solar growth", "Assess wind growth"}, result.Draft.Objectives)
	assert.Equal(t, []string{"Focus on Europe"}, result.Draft.Constraints)
}

func TestRunReadyWithoutTopicIsCoerced(t *testing.T) {
	noTopic := `{"status": "ready", "questions": [], "brief": {"topic": "  ", "objectives": ["Something"], "key_questions": [], "constraints": []}}`
	mock := &MockLLM{responses: []string{noTopic}}
	c, err := New(mock)
	require.NoError(t, err)

	result, err := c.Run(context.Background(), []session.Turn{userTurn("research something for me")}, nil)
	require.NoError(t, err)

	assert.False(t, result.Ready)
	require.Len(t, result.Questions, 1)
	assert.Contains(t, result.Questions[0], "topic")
}

func TestRunFencedJSONAccepted(t *testing.T) {
	fenced := "Here you go:\n```json\n" + readyJSON + "\n```"
	mock := &MockLLM{responses: []string{fenced}}
	c, err := New(mock)
	require.NoError(t, err)

	result, err := c.Run(context.Background(), []session.Turn{userTurn("renewables")}, nil)
	require.NoError(t, err)
	assert.True(t, result.Ready)
	assert.Equal(t, 1, mock.callCount, "fenced JSON should not trigger a re-prompt")
}

func TestRunCorrectiveReprompt(t *testing.T) {
	mock := &MockLLM{responses: []string{
		"Sure! Let me ask a few questions first.",
		needMoreJSON,
	}}
	c, err := New(mock)
	require.NoError(t, err)

	result, err := c.Run(context.Background(), []session.Turn{userTurn("renewables")}, nil)
	require.NoError(t, err)
	assert.False(t, result.Ready)
	assert.Equal(t, 2, mock.callCount)

	// The second call must carry the malformed reply and the correction.
	require.Len(t, mock.calls, 2)
	second := mock.calls[1]
	require.Len(t, second, len(mock.calls[0])+2)
	last := second[len(second)-1]
	assert.Equal(t, llms.ChatMessageTypeHuman, last.Role)
	assert.Equal(t, correctivePrompt, last.Parts[0].(llms.TextContent).Text)
}

func TestRunMalformedTwiceFails(t *testing.T) {
	mock := &MockLLM{responses: []string{
		"I could not produce the requested format.",
		"Still not JSON, sorry.",
	}}
	c, err := New(mock)
	require.NoError(t, err)

	_, err = c.Run(context.Background(), []session.Turn{userTurn("renewables")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, deepresearch.ErrGenerationUnavailable)
	assert.Equal(t, 2, mock.callCount)
}

func TestRunRetriesTransientErrors(t *testing.T) {
	mock := &MockLLM{
		errs:      []error{errors.New("upstream 503"), nil},
		responses: []string{"", readyJSON},
	}
	c, err := New(mock, WithRetryPolicy(deepresearch.Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	}))
	require.NoError(t, err)

	result, err := c.Run(context.Background(), []session.Turn{userTurn("renewables")}, nil)
	require.NoError(t, err)
	assert.True(t, result.Ready)
	assert.Equal(t, 2, mock.callCount)
}

func TestRunGenerationExhaustedFails(t *testing.T) {
	mock := &MockLLM{errs: []error{
		errors.New("upstream 503"),
		errors.New("upstream 503"),
	}}
	c, err := New(mock, WithRetryPolicy(deepresearch.Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	}))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), []session.Turn{userTurn("renewables")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, deepresearch.ErrGenerationUnavailable)
}

func TestRunCancelledContext(t *testing.T) {
	mock := &MockLLM{responses: []string{readyJSON}}
	c, err := New(mock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Run(ctx, []session.Turn{userTurn("renewables")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, deepresearch.ErrGenerationUnavailable)
}

func TestRunDoesNotMutateInputs(t *testing.T) {
	mock := &MockLLM{responses: []string{needMoreJSON}}
	c, err := New(mock)
	require.NoError(t, err)

	conversation := []session.Turn{
		userTurn("renewable energy trends"),
		agentTurn("Which regions?"),
	}
	draft := &brief.Brief{Topic: "renewable energy", Objectives: []string{"initial"}}

	conversationBefore := append([]session.Turn(nil), conversation...)
	draftBefore := draft.Clone()

	result, err := c.Run(context.Background(), conversation, draft)
	require.NoError(t, err)

	assert.Equal(t, conversationBefore, conversation)
	assert.Equal(t, draftBefore, draft)
	assert.NotSame(t, draft, result.Draft)
}

func TestRunSamePromptForSameInputs(t *testing.T) {
	conversation := []session.Turn{userTurn("renewable energy trends")}
	draft := &brief.Brief{Topic: "renewable energy"}

	first := &MockLLM{responses: []string{needMoreJSON}}
	second := &MockLLM{responses: []string{needMoreJSON}}

	c1, err := New(first)
	require.NoError(t, err)
	c2, err := New(second)
	require.NoError(t, err)

	_, err = c1.Run(context.Background(), conversation, draft)
	require.NoError(t, err)
	_, err = c2.Run(context.Background(), conversation, draft)
	require.NoError(t, err)

	assert.Equal(t, first.calls[0], second.calls[0])
}

func TestRunQuestionCap(t *testing.T) {
	many := `{"status": "need_more", "questions": ["q1", "q2", "q3", "q4", "q5"], "brief": null}`
	mock := &MockLLM{responses: []string{many}}
	c, err := New(mock, WithMaxQuestions(2))
	require.NoError(t, err)

	result, err := c.Run(context.Background(), []session.Turn{userTurn("renewables")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, result.Questions)
}

func TestRunKeepsPriorDraftWhenBriefOmitted(t *testing.T) {
	noBrief := `{"status": "need_more", "questions": ["Which regions?"]}`
	mock := &MockLLM{responses: []string{noBrief}}
	c, err := New(mock)
	require.NoError(t, err)

	prior := &brief.Brief{Topic: "renewable energy", Objectives: []string{"initial"}}

	result, err := c.Run(context.Background(), []session.Turn{userTurn("renewables")}, prior)
	require.NoError(t, err)

	require.NotNil(t, result.Draft)
	assert.Equal(t, prior, result.Draft)
	assert.NotSame(t, prior, result.Draft)
}
