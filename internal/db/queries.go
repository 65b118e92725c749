package db

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Run struct {
	ID         string
	Stock      string
	Task       string
	Status     string
	StopReason sql.NullString
	Error      sql.NullString
	CreatedAt  time.Time
	FinishedAt sql.NullTime
}

type Message struct {
	ID        int64
	RunID     string
	Seq       int64
	Source    string
	Kind      string
	Content   string
	CreatedAt time.Time
}

const insertRun = `INSERT INTO runs (id, stock, task) VALUES (?, ?, ?)`

type InsertRunParams struct {
	ID    string
	Stock string
	Task  string
}

func (q *Queries) InsertRun(ctx context.Context, arg InsertRunParams) error {
	_, err := q.db.ExecContext(ctx, insertRun, arg.ID, arg.Stock, arg.Task)
	return err
}

const finishRun = `UPDATE runs
SET status = ?, stop_reason = ?, error = ?, finished_at = CURRENT_TIMESTAMP
WHERE id = ?`

type FinishRunParams struct {
	ID         string
	Status     string
	StopReason sql.NullString
	Error      sql.NullString
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, finishRun, arg.Status, arg.StopReason, arg.Error, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const runColumns = `id, stock, task, status, stop_reason, error, created_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Stock, &r.Task, &r.Status, &r.StopReason, &r.Error, &r.CreatedAt, &r.FinishedAt)
	return r, err
}

const getRun = `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	return scanRun(q.db.QueryRowContext(ctx, getRun, id))
}

const listRuns = `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const insertMessage = `INSERT INTO messages (run_id, seq, source, kind, content) VALUES (?, ?, ?, ?, ?)`

type InsertMessageParams struct {
	RunID   string
	Seq     int64
	Source  string
	Kind    string
	Content string
}

func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) error {
	_, err := q.db.ExecContext(ctx, insertMessage, arg.RunID, arg.Seq, arg.Source, arg.Kind, arg.Content)
	return err
}

const getMessagesByRun = `SELECT id, run_id, seq, source, kind, content, created_at
FROM messages WHERE run_id = ? ORDER BY seq`

func (q *Queries) GetMessagesByRun(ctx context.Context, runID string) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, getMessagesByRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RunID, &m.Seq, &m.Source, &m.Kind, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
