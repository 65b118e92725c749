package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stockteam/internal/agent"
	"stockteam/internal/history"
	"stockteam/internal/team"

	"github.com/google/uuid"
)

var ErrNoStock = errors.New("no stock given")

// Report is the outcome of one analysis.
type Report struct {
	RunID string `json:"run_id"`
	Stock string `json:"stock"`
	team.Result
}

// Analyzer runs analyses. *Service implements it; surfaces depend on this
// interface.
type Analyzer interface {
	Analyze(ctx context.Context, stock string, emit func(agent.Event)) (*Report, error)
}

var _ Analyzer = (*Service)(nil)

// Runner is the team the service drives.
type Runner interface {
	Run(ctx context.Context, task string, emit func(agent.Event)) (*team.Result, error)
}

type Service struct {
	team         Runner
	store        *history.Store
	defaultStock string
}

// NewService runs analyses on t. store may be nil to skip persistence.
func NewService(t Runner, store *history.Store, defaultStock string) *Service {
	return &Service{team: t, store: store, defaultStock: defaultStock}
}

func (s *Service) DefaultStock() string { return s.defaultStock }

// Analyze runs the team on stock, or the default stock when empty. emit
// may be nil. On failure the partial report is returned with the error.
func (s *Service) Analyze(ctx context.Context, stock string, emit func(agent.Event)) (*Report, error) {
	stock = strings.TrimSpace(stock)
	if stock == "" {
		stock = s.defaultStock
	}
	if stock == "" {
		return nil, ErrNoStock
	}
	if emit == nil {
		emit = func(agent.Event) {}
	}

	runID := uuid.NewString()
	ctx = agent.ContextWithRunID(ctx, runID)
	task := Task(stock)
	log := slog.With("run_id", runID, "stock", stock)
	log.Info("analysis started")

	persist := s.store != nil
	if persist {
		if err := s.store.CreateRun(ctx, runID, stock, task); err != nil {
			log.Error("failed to record run", "error", err)
			persist = false
		}
	}

	seq := 0
	res, err := s.team.Run(ctx, task, func(ev agent.Event) {
		if ev.Type == agent.EventMessage && persist {
			if m, ok := ev.Data.(agent.Message); ok {
				if err := s.store.AppendMessage(context.WithoutCancel(ctx), runID, seq, m); err != nil {
					log.Error("failed to record message", "seq", seq, "error", err)
				}
				seq++
			}
		}
		emit(ev)
	})

	report := &Report{RunID: runID, Stock: stock}
	if res != nil {
		report.Result = *res
	}

	if persist {
		if ferr := s.store.FinishRun(context.WithoutCancel(ctx), runID, report.StopReason, err); ferr != nil {
			log.Error("failed to finish run", "error", ferr)
		}
	}

	if err != nil {
		log.Error("analysis failed", "error", err)
		return report, err
	}
	log.Info("analysis finished", "messages", len(report.Messages), "reason", report.StopReason)
	return report, nil
}
