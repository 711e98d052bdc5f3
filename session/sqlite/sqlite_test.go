package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/deepresearch/brief"
	"github.com/smallnest/deepresearch/session"
)

func TestSQLiteStore(t *testing.T) {
	store, err := New(Options{Path: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	st := session.New()
	st.AppendUser("research hydrogen aviation")
	st.Draft = &brief.Brief{Topic: "hydrogen aviation"}
	st.Rounds = 1
	st.ResumeNode = "approve"
	st.AwaitingApproval = true

	// Save and load
	require.NoError(t, store.Save(ctx, st))

	loaded, err := store.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, loaded.ID)
	assert.Equal(t, session.PhaseClarifying, loaded.Phase)
	assert.Equal(t, "hydrogen aviation", loaded.Draft.Topic)
	assert.Equal(t, "approve", loaded.ResumeNode)
	assert.True(t, loaded.AwaitingApproval)
	require.Len(t, loaded.Conversation, 1)
	assert.Equal(t, "research hydrogen aviation", loaded.Conversation[0].Content)

	// Saving again overwrites instead of duplicating.
	st.Phase = session.PhaseResearching
	st.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.Save(ctx, st))

	loaded, err = store.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseResearching, loaded.Phase)

	// List
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{st.ID}, ids)

	// Delete
	require.NoError(t, store.Delete(ctx, st.ID))

	_, err = store.Load(ctx, st.ID)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 0)
}

func TestSQLiteStoreListOrder(t *testing.T) {
	store, err := New(Options{Path: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	older := session.New()
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, older))

	newer := session.New()
	newer.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.Save(ctx, newer))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{newer.ID, older.ID}, ids)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := New(Options{Path: path})
	require.NoError(t, err)

	ctx := context.Background()
	st := session.New()
	st.AppendUser("keep me")
	require.NoError(t, store.Save(ctx, st))
	require.NoError(t, store.Close())

	reopened, err := New(Options{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Conversation, 1)
	assert.Equal(t, "keep me", loaded.Conversation[0].Content)
}

func TestSQLiteStoreRejectsMissingID(t *testing.T) {
	store, err := New(Options{Path: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Save(context.Background(), &session.State{}))
	assert.Error(t, store.Save(context.Background(), nil))
}
