package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/research"
	"github.com/smallnest/deepresearch/session"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	st := session.New()
	st.AppendUser("research battery recycling")
	st.AppendAgent("which region?")
	st.Draft = &brief.Brief{Topic: "battery recycling", KeyQuestions: []string{"capacity?"}}
	st.Findings = []research.Finding{{Query: "battery recycling capacity", Title: "Report", URL: "https://a.example", Snippet: "..."}}
	st.Rounds = 2
	st.ResumeNode = "clarify"

	require.NoError(t, store.Save(ctx, st))

	loaded, err := store.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)

	// The stored copy is isolated from later mutation on either side.
	st.AppendUser("more input")
	loaded.Draft.Topic = "changed"

	again, err := store.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, again.Conversation, 2)
	assert.Equal(t, "battery recycling", again.Draft.Topic)
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := New()

	_, err := store.Load(context.Background(), "unknown")
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestMemoryStoreSaveRequiresID(t *testing.T) {
	store := New()

	err := store.Save(context.Background(), &session.State{})
	assert.Error(t, err)
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	a := session.New()
	b := session.New()
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	require.NoError(t, store.Delete(ctx, a.ID))
	_, err = store.Load(ctx, a.ID)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(ctx, a.ID))

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)
}

func TestMemoryStoreSaveReplaces(t *testing.T) {
	store := New()
	ctx := context.Background()

	st := session.New()
	require.NoError(t, store.Save(ctx, st))

	st.AppendUser("update")
	require.NoError(t, st.Transition(session.PhaseResearching))
	require.NoError(t, store.Save(ctx, st))

	loaded, err := store.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseResearching, loaded.Phase)
	assert.Len(t, loaded.Conversation, 1)
}
