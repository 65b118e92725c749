// Package research runs one-shot grounded research calls against a remote
// agent service. Every call owns its remote agent and deletes it before
// returning.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stockteam/internal/agentsvc"
	"stockteam/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	MissingInfoAnswer = "Error: Unable to fetch data due to missing information."
	UnexpectedAnswer  = "Error: Unable to fetch data due to an unexpected issue."

	defaultCleanupTimeout = 30 * time.Second
)

// ErrNoAnswer means the run finished without an assistant text reply.
var ErrNoAnswer = fmt.Errorf("no assistant text in thread: %w", agentsvc.ErrMissingField)

type Option func(*Researcher)

// WithTimeout bounds a single research call. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Researcher) { r.timeout = d }
}

// WithCleanupTimeout bounds deleting the remote thread and agent. Values
// <= 0 keep the default.
func WithCleanupTimeout(d time.Duration) Option {
	return func(r *Researcher) {
		if d > 0 {
			r.cleanupTimeout = d
		}
	}
}

type Researcher struct {
	svc            agentsvc.Service
	model          string
	connectionID   string
	timeout        time.Duration
	cleanupTimeout time.Duration
}

// New builds a Researcher whose remote agents run model and ground on the
// web search connection connectionID. An empty connectionID creates agents
// without the grounding tool.
func New(svc agentsvc.Service, model, connectionID string, opts ...Option) *Researcher {
	r := &Researcher{
		svc:            svc,
		model:          model,
		connectionID:   connectionID,
		cleanupTimeout: defaultCleanupTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query researches stock from the angle of topic and returns the remote
// agent's answer. Failures never surface as errors; they become one of the
// fixed fallback answers.
func (r *Researcher) Query(ctx context.Context, topic Topic, stock string) string {
	slog.Info("research: fetching", "topic", topic.Name, "what", topic.LogLabel, "stock", stock)

	answer, err := r.Fetch(ctx, topic, stock)
	if err != nil {
		fallback := Fallback(err)
		if fallback == MissingInfoAnswer {
			slog.Error("research: missing information in response", "topic", topic.Name, "stock", stock, "error", err)
		} else {
			slog.Error("research: unexpected error", "topic", topic.Name, "stock", stock, "error", err)
		}
		return fallback
	}
	return answer
}

// Fallback maps a research error to the answer shown to the model.
func Fallback(err error) string {
	if errors.Is(err, agentsvc.ErrMissingField) {
		return MissingInfoAnswer
	}
	return UnexpectedAnswer
}

// Fetch performs the full remote lifecycle and returns errors unchanged.
func (r *Researcher) Fetch(ctx context.Context, topic Topic, stock string) (answer string, err error) {
	ctx, span := trace.Tracer().Start(ctx, "research."+topic.Name,
		oteltrace.WithAttributes(
			attribute.String("research.topic", topic.Name),
			attribute.String("research.stock", stock),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("research.answer_length", len(answer)))
		}
		span.End()
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	params := agentsvc.AgentParams{
		Model:        r.model,
		Name:         topic.AgentName(),
		Instructions: topic.instructions(stock),
	}
	if r.connectionID != "" {
		params.Tools = []agentsvc.ToolDefinition{agentsvc.BingGroundingTool(r.connectionID)}
	}

	agent, err := r.svc.CreateAgent(ctx, params)
	if err != nil {
		return "", err
	}
	var threadID string
	defer func() { r.cleanup(ctx, agent.ID, threadID) }()

	thread, err := r.svc.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	threadID = thread.ID

	if _, err := r.svc.CreateMessage(ctx, threadID, agentsvc.RoleUser, topic.prompt(stock)); err != nil {
		return "", err
	}

	run, err := r.svc.CreateAndProcessRun(ctx, threadID, agent.ID)
	if err != nil {
		return "", err
	}
	slog.Debug("research: run finished", "topic", topic.Name, "run_id", run.ID, "status", run.Status)

	msgs, err := r.svc.ListMessages(ctx, threadID)
	if err != nil {
		return "", err
	}
	return newestAnswer(msgs)
}

// newestAnswer picks the first text of the newest assistant message.
// Messages are ordered newest first.
func newestAnswer(msgs []agentsvc.Message) (string, error) {
	for _, m := range msgs {
		if m.Role != agentsvc.RoleAssistant {
			continue
		}
		if text, ok := m.Text(); ok {
			return text, nil
		}
		return "", ErrNoAnswer
	}
	return "", ErrNoAnswer
}

// cleanup deletes the remote agent and, best effort, its thread. It runs on
// a context detached from cancellation so an aborted call still releases
// its resources.
func (r *Researcher) cleanup(ctx context.Context, agentID, threadID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cleanupTimeout)
	defer cancel()

	if threadID != "" {
		if err := r.svc.DeleteThread(ctx, threadID); err != nil {
			slog.Warn("research: failed to delete thread", "thread_id", threadID, "error", err)
		}
	}
	if err := r.svc.DeleteAgent(ctx, agentID); err != nil {
		slog.Warn("research: failed to delete agent", "agent_id", agentID, "error", err)
	}
}
