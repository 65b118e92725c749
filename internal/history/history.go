// Package history stores team run transcripts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stockteam/internal/agent"
	"stockteam/internal/db"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	defaultListLimit = 20
)

var ErrNotFound = errors.New("run not found")

type Run struct {
	ID         string          `json:"id"`
	Stock      string          `json:"stock"`
	Task       string          `json:"task"`
	Status     string          `json:"status"`
	StopReason string          `json:"stop_reason,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Messages   []agent.Message `json:"messages,omitempty"`
}

type Store struct {
	q *db.Queries
}

func NewStore(database *db.DB) *Store {
	return &Store{q: db.New(database.Conn())}
}

func (s *Store) CreateRun(ctx context.Context, id, stock, task string) error {
	if err := s.q.InsertRun(ctx, db.InsertRunParams{ID: id, Stock: stock, Task: task}); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// AppendMessage stores the seq-th message of a run. seq starts at 0 with
// the task.
func (s *Store) AppendMessage(ctx context.Context, runID string, seq int, m agent.Message) error {
	err := s.q.InsertMessage(ctx, db.InsertMessageParams{
		RunID:   runID,
		Seq:     int64(seq),
		Source:  m.Source,
		Kind:    string(m.Kind),
		Content: m.Content,
	})
	if err != nil {
		return fmt.Errorf("inserting message %d of run %s: %w", seq, runID, err)
	}
	return nil
}

// FinishRun records the outcome. A non-nil runErr marks the run failed.
func (s *Store) FinishRun(ctx context.Context, runID, stopReason string, runErr error) error {
	params := db.FinishRunParams{
		ID:         runID,
		Status:     StatusCompleted,
		StopReason: sql.NullString{String: stopReason, Valid: stopReason != ""},
	}
	if runErr != nil {
		params.Status = StatusFailed
		params.Error = sql.NullString{String: runErr.Error(), Valid: true}
	}
	n, err := s.q.FinishRun(ctx, params)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// ListRuns returns the newest runs first, without messages.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.q.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	out := make([]Run, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// GetRun returns a run with its full transcript.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row, err := s.q.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	run := fromRow(row)

	msgs, err := s.q.GetMessagesByRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting messages: %w", err)
	}
	for _, m := range msgs {
		run.Messages = append(run.Messages, agent.Message{
			Source:  m.Source,
			Kind:    agent.MessageKind(m.Kind),
			Content: m.Content,
		})
	}
	return &run, nil
}

func fromRow(r db.Run) Run {
	run := Run{
		ID:         r.ID,
		Stock:      r.Stock,
		Task:       r.Task,
		Status:     r.Status,
		StopReason: r.StopReason.String,
		Error:      r.Error.String,
		CreatedAt:  r.CreatedAt,
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Time
		run.FinishedAt = &t
	}
	return run
}
