package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/deepresearch"
	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/research"
)

func TestNewSession(t *testing.T) {
	st := New()

	assert.NotEmpty(t, st.ID)
	assert.Equal(t, PhaseClarifying, st.Phase)
	assert.Nil(t, st.Brief)
	assert.Empty(t, st.Conversation)
	assert.False(t, st.CreatedAt.IsZero())

	other := New()
	assert.NotEqual(t, st.ID, other.ID)
}

func TestAppendAndLastAgentTurn(t *testing.T) {
	st := New()

	_, ok := st.LastAgentTurn()
	assert.False(t, ok)

	st.AppendUser("research solar panels")
	st.AppendAgent("which region?")
	st.AppendUser("europe")

	require.Len(t, st.Conversation, 3)
	assert.Equal(t, RoleUser, st.Conversation[0].Role)
	assert.False(t, st.Conversation[0].At.IsZero())

	last, ok := st.LastAgentTurn()
	require.True(t, ok)
	assert.Equal(t, "which region?", last.Content)
}

func TestTransition(t *testing.T) {
	st := New()

	require.NoError(t, st.Transition(PhaseResearching))
	assert.Equal(t, PhaseResearching, st.Phase)

	require.NoError(t, st.Transition(PhaseComplete))
	assert.Equal(t, PhaseComplete, st.Phase)
}

func TestTransitionAbort(t *testing.T) {
	st := New()

	// Declining to continue completes the session without a report.
	require.NoError(t, st.Transition(PhaseComplete))
	assert.Equal(t, PhaseComplete, st.Phase)
	assert.Nil(t, st.Report)
	assert.Nil(t, st.Brief)
}

func TestTransitionRejectsInvalidMoves(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
	}{
		{"regress", PhaseResearching, PhaseClarifying},
		{"advance from complete", PhaseComplete, PhaseClarifying},
		{"reopen from complete", PhaseComplete, PhaseResearching},
		{"self transition", PhaseClarifying, PhaseClarifying},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New()
			st.Phase = tt.from

			err := st.Transition(tt.to)
			assert.True(t, errors.Is(err, deepresearch.ErrInvalidPhaseTransition))
			assert.Equal(t, tt.from, st.Phase, "failed transition must leave the phase untouched")
		})
	}
}

func TestClone(t *testing.T) {
	st := New()
	st.AppendUser("hello")
	st.Draft = &brief.Brief{Topic: "wind power", KeyQuestions: []string{"costs?"}}
	st.Findings = []research.Finding{{Query: "q", Title: "t", URL: "https://a.example"}}
	st.Report = &research.Report{Topic: "wind power", Sections: []research.Section{{Title: "Overview", Body: "text"}}}

	copied := st.Clone()
	require.NotSame(t, st, copied)
	assert.Equal(t, st, copied)

	copied.AppendAgent("extra")
	copied.Draft.Topic = "changed"
	copied.Findings[0].Title = "changed"
	copied.Report.Sections[0].Body = "changed"

	assert.Len(t, st.Conversation, 1)
	assert.Equal(t, "wind power", st.Draft.Topic)
	assert.Equal(t, "t", st.Findings[0].Title)
	assert.Equal(t, "text", st.Report.Sections[0].Body)
}

func TestMergeGuardAcceptsForwardProgress(t *testing.T) {
	current := New()
	current.AppendUser("hi")

	next := current.Clone()
	next.AppendAgent("question?")
	next.Rounds = 1

	merged, err := MergeGuard(current, next)
	require.NoError(t, err)
	assert.Same(t, next, merged)
}

func TestMergeGuardRejectsPhaseRegression(t *testing.T) {
	current := New()
	current.Phase = PhaseResearching

	next := current.Clone()
	next.Phase = PhaseClarifying

	merged, err := MergeGuard(current, next)
	assert.True(t, errors.Is(err, deepresearch.ErrInvalidPhaseTransition))
	assert.Same(t, current, merged)
}

func TestMergeGuardRejectsConversationRewrite(t *testing.T) {
	current := New()
	current.AppendUser("original question")

	shrunk := current.Clone()
	shrunk.Conversation = nil
	_, err := MergeGuard(current, shrunk)
	assert.ErrorContains(t, err, "shrank")

	rewritten := current.Clone()
	rewritten.Conversation[0].Content = "edited"
	_, err = MergeGuard(current, rewritten)
	assert.ErrorContains(t, err, "rewritten")
}
