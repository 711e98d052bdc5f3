package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/deepresearch/session"
)

func TestPostgresStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	st := session.New()
	st.AppendUser("research topic")
	data, _ := json.Marshal(st)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(st.ID, string(st.Phase), data, st.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Save(context.Background(), st)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRequiresID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	err = store.Save(context.Background(), &session.State{})
	assert.Error(t, err)
}

func TestPostgresStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	st := session.New()
	st.AppendAgent("which aspect interests you?")
	st.Rounds = 1
	data, _ := json.Marshal(st)

	rows := pgxmock.NewRows([]string{"state"}).AddRow(data)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT state FROM sessions WHERE id = $1")).
		WithArgs(st.ID).
		WillReturnRows(rows)

	loaded, err := store.Load(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, loaded.ID)
	assert.Equal(t, 1, loaded.Rounds)
	require.Len(t, loaded.Conversation, 1)
	assert.Equal(t, session.RoleAgent, loaded.Conversation[0].Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT state FROM sessions WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	loaded, err := store.Load(context.Background(), "missing")
	assert.Nil(t, loaded)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT state FROM sessions WHERE id = $1")).
		WithArgs("id").
		WillReturnError(errors.New("database connection failed"))

	_, err = store.Load(context.Background(), "id")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load session")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	rows := pgxmock.NewRows([]string{"id"}).
		AddRow("sess-2").
		AddRow("sess-1")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sessions ORDER BY updated_at DESC")).
		WillReturnRows(rows)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-2", "sess-1"}, ids)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = store.Delete(context.Background(), "sess-1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "sessions")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sessions")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err = store.InitSchema(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPool_DefaultTableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, "")
	assert.Equal(t, "sessions", store.tableName)
}
