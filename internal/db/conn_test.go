package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "a", "b", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate())
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := openTemp(t)
	require.NoError(t, d.Migrate())
}

func TestForeignKeysEnforced(t *testing.T) {
	d := openTemp(t)
	err := New(d.Conn()).InsertMessage(context.Background(), InsertMessageParams{
		RunID: "missing", Seq: 0, Source: "user", Kind: "task", Content: "x",
	})
	assert.Error(t, err)
}

func TestRunRoundTrip(t *testing.T) {
	d := openTemp(t)
	ctx := context.Background()
	q := New(d.Conn())

	require.NoError(t, q.InsertRun(ctx, InsertRunParams{ID: "r1", Stock: "acme", Task: "t"}))
	run, err := q.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "running", run.Status)
	assert.False(t, run.FinishedAt.Valid)
	assert.False(t, run.CreatedAt.IsZero())

	_, err = q.GetRun(ctx, "r2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/x/y.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y.db"), got)

	got, err = expandHome("/abs/y.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/y.db", got)
}

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"file:/tmp/s.db?_pragma=journal_mode%28WAL%29&_pragma=foreign_keys%281%29&_pragma=busy_timeout%285000%29",
		dsn("/tmp/s.db"),
	)
}
