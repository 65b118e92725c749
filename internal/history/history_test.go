package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockteam/internal/agent"
	"stockteam/internal/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "nested", "stockteam.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return NewStore(database)
}

func TestRunLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run-1", "acme", "Analyze acme"))
	transcript := []agent.Message{
		{Source: agent.UserSource, Kind: agent.KindTask, Content: "Analyze acme"},
		{Source: "stock_trends_agent", Kind: agent.KindToolSummary, Content: "Up 4%"},
		{Source: "decision_agent", Kind: agent.KindText, Content: "Invest. Decision Made"},
	}
	for i, m := range transcript {
		require.NoError(t, s.AppendMessage(ctx, "run-1", i, m))
	}

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, s.FinishRun(ctx, "run-1", "Text 'Decision Made' mentioned", nil))

	run, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "acme", run.Stock)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "Text 'Decision Made' mentioned", run.StopReason)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, transcript, run.Messages)
}

func TestFailedRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run-2", "acme", "task"))
	require.NoError(t, s.FinishRun(ctx, "run-2", "", errors.New("news_agent: model call: 503")))

	run, err := s.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "news_agent: model call: 503", run.Error)
	assert.Empty(t, run.StopReason)
	assert.Empty(t, run.Messages)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateRun(ctx, id, "stock-"+id, "task"))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestMissingRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.FinishRun(ctx, "nope", "", nil), ErrNotFound)
	assert.Error(t, s.AppendMessage(ctx, "nope", 0, agent.Message{Source: "x", Kind: agent.KindText}))
}

func TestDuplicateSeqRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run", "acme", "task"))
	m := agent.Message{Source: "a", Kind: agent.KindText, Content: "x"}
	require.NoError(t, s.AppendMessage(ctx, "run", 1, m))
	assert.Error(t, s.AppendMessage(ctx, "run", 1, m))
}
