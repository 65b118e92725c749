// Package team runs a fixed set of participants in turn over a shared
// transcript until a termination condition fires.
package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stockteam/internal/agent"
	"stockteam/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Participant interface {
	Name() string
	Step(ctx context.Context, transcript []agent.Message, emit func(agent.Event)) (agent.Message, error)
}

type Result struct {
	Messages   []agent.Message `json:"messages"`
	StopReason string          `json:"stop_reason"`
}

// Last returns the final message of the run.
func (r *Result) Last() (agent.Message, bool) {
	if r == nil || len(r.Messages) == 0 {
		return agent.Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

type RoundRobin struct {
	participants []Participant
	cond         Condition
}

var (
	ErrNoParticipants = errors.New("team has no participants")
	ErrNoCondition    = errors.New("team has no termination condition")
)

func NewRoundRobin(participants []Participant, cond Condition) *RoundRobin {
	return &RoundRobin{participants: participants, cond: cond}
}

func (t *RoundRobin) Participants() []string {
	names := make([]string, len(t.participants))
	for i, p := range t.participants {
		names[i] = p.Name()
	}
	return names
}

// Run posts task to the transcript and lets participants speak in order
// until the condition fires. On a participant error or cancellation the
// partial result is returned along with the error.
func (t *RoundRobin) Run(ctx context.Context, task string, emit func(agent.Event)) (*Result, error) {
	if len(t.participants) == 0 {
		return nil, ErrNoParticipants
	}
	if t.cond == nil {
		return nil, ErrNoCondition
	}
	if emit == nil {
		emit = func(agent.Event) {}
	}

	ctx, span := trace.Tracer().Start(ctx, "team.run",
		oteltrace.WithAttributes(attribute.Int("team.participants", len(t.participants))),
	)
	defer span.End()

	res := &Result{}
	post := func(m agent.Message) bool {
		res.Messages = append(res.Messages, m)
		emit(agent.Event{Type: agent.EventMessage, Source: m.Source, Data: m})
		reason, stop := t.cond.Check(res.Messages)
		if stop {
			res.StopReason = reason
		}
		return stop
	}
	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emit(agent.Event{Type: agent.EventError, Data: err.Error()})
		return res, err
	}

	if post(agent.Message{Source: agent.UserSource, Kind: agent.KindTask, Content: task}) {
		return t.done(span, res, emit), nil
	}

	for turn := 0; ; turn++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		p := t.participants[turn%len(t.participants)]
		slog.Debug("team turn", "turn", turn, "speaker", p.Name())

		msg, err := p.Step(ctx, res.Messages, emit)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", p.Name(), err))
		}
		if msg.Source == "" {
			msg.Source = p.Name()
		}
		if post(msg) {
			return t.done(span, res, emit), nil
		}
	}
}

func (t *RoundRobin) done(span oteltrace.Span, res *Result, emit func(agent.Event)) *Result {
	span.SetAttributes(
		attribute.Int("team.messages", len(res.Messages)),
		attribute.String("team.stop_reason", res.StopReason),
	)
	slog.Info("team stopped", "messages", len(res.Messages), "reason", res.StopReason)
	emit(agent.Event{Type: agent.EventDone, Data: res.StopReason})
	return res
}
