package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"stockteam/internal/llm"
	"stockteam/internal/trace"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const defaultReflectRounds = 5

type AssistantOption func(*Assistant)

// WithReflectOnToolUse makes the assistant feed tool results back to the
// model and answer in its own words, for at most maxRounds tool rounds.
func WithReflectOnToolUse(maxRounds int) AssistantOption {
	return func(a *Assistant) {
		a.reflect = true
		if maxRounds > 0 {
			a.maxRounds = maxRounds
		}
	}
}

// Assistant is a model-backed participant with a fixed role prompt.
//
// Each turn is a ReAct step: the model sees the transcript and either
// answers or calls tools. Without reflection the tool results themselves
// become the assistant's message; with reflection they go back to the model
// until it answers or the round budget runs out.
type Assistant struct {
	name         string
	systemPrompt string
	provider     llm.Provider
	registry     *Registry
	tools        []responses.ToolUnionParam
	reflect      bool
	maxRounds    int
}

func NewAssistant(name, systemPrompt string, provider llm.Provider, registry *Registry, opts ...AssistantOption) *Assistant {
	if registry == nil {
		registry = NewRegistry()
	}
	a := &Assistant{
		name:         name,
		systemPrompt: systemPrompt,
		provider:     provider,
		registry:     registry,
		maxRounds:    1,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.reflect && a.maxRounds <= 1 {
		a.maxRounds = defaultReflectRounds
	}

	for _, t := range registry.All() {
		schema, _ := t.InputSchema().(map[string]any)
		a.tools = append(a.tools, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        t.Name(),
				Description: openai.String(t.Description()),
				Parameters:  schema,
				Strict:      openai.Bool(true),
			},
		})
	}
	return a
}

func (a *Assistant) Name() string { return a.name }

// Step takes one turn over the shared transcript and returns the
// assistant's message.
func (a *Assistant) Step(ctx context.Context, transcript []Message, emit func(Event)) (Message, error) {
	ctx = ContextWithSpeaker(ctx, a.name)
	ctx, span := trace.Tracer().Start(ctx, "agent.step",
		oteltrace.WithAttributes(
			attribute.String("agent.name", a.name),
			attribute.Int("agent.transcript_length", len(transcript)),
		),
	)
	defer span.End()

	msg, err := a.loop(ctx, a.buildInput(transcript), emit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Message{}, err
	}
	span.SetAttributes(attribute.String("agent.message_kind", string(msg.Kind)))
	return msg, nil
}

// buildInput renders the transcript from this assistant's point of view:
// its own messages are assistant turns, everyone else's are user turns
// tagged with the speaker.
func (a *Assistant) buildInput(transcript []Message) []responses.ResponseInputItemUnionParam {
	input := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(a.systemPrompt, "developer"),
	}
	for _, m := range transcript {
		switch {
		case m.Source == a.name:
			input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, "assistant"))
		case m.Source == UserSource:
			input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, "user"))
		default:
			input = append(input, responses.ResponseInputItemParamOfMessage(m.Source+": "+m.Content, "user"))
		}
	}
	return input
}

func (a *Assistant) loop(ctx context.Context, input []responses.ResponseInputItemUnionParam, emit func(Event)) (Message, error) {
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		llmCtx, llmSpan := trace.Tracer().Start(ctx, "llm.chat",
			oteltrace.WithAttributes(attribute.Int("llm.round", round)),
		)
		resp, err := a.provider.ChatStream(llmCtx, input, a.tools, func(token string) {
			emit(Event{Type: EventToken, Source: a.name, Data: token})
		})
		if err != nil {
			llmSpan.RecordError(err)
			llmSpan.SetStatus(codes.Error, err.Error())
			llmSpan.End()
			return Message{}, fmt.Errorf("model call: %w", err)
		}
		llmSpan.SetAttributes(
			attribute.String("llm.model", string(resp.Model)),
			attribute.Int64("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int64("llm.output_tokens", resp.Usage.OutputTokens),
		)
		llmSpan.End()

		calls := llm.FunctionCalls(resp)
		if len(calls) == 0 {
			return Message{Source: a.name, Kind: KindText, Content: llm.OutputText(resp)}, nil
		}

		results := a.act(ctx, calls, emit)

		if !a.reflect || round+1 >= a.maxRounds {
			return Message{Source: a.name, Kind: KindToolSummary, Content: summarize(results)}, nil
		}

		input = append(input, llm.OutputToInput(resp.Output)...)
		for _, r := range results {
			input = append(input, responses.ResponseInputItemParamOfFunctionCallOutput(r.CallID, r.Content))
		}
	}
}

// act executes tool calls in parallel and returns their results in call
// order. Events are emitted from the calling goroutine only.
func (a *Assistant) act(ctx context.Context, calls []responses.ResponseFunctionToolCall, emit func(Event)) []ToolResult {
	for _, fc := range calls {
		emit(Event{Type: EventToolCall, Source: a.name, Data: ToolCall{
			CallID:    fc.CallID,
			Name:      fc.Name,
			Arguments: fc.Arguments,
		}})
	}

	var wg sync.WaitGroup
	results := make([]ToolResult, len(calls))

	for i, fc := range calls {
		wg.Add(1)
		go func(i int, fc responses.ResponseFunctionToolCall) {
			defer wg.Done()
			results[i] = a.execute(ctx, fc)
		}(i, fc)
	}
	wg.Wait()

	for _, r := range results {
		emit(Event{Type: EventToolResult, Source: a.name, Data: r})
	}
	return results
}

func (a *Assistant) execute(ctx context.Context, fc responses.ResponseFunctionToolCall) ToolResult {
	res := ToolResult{CallID: fc.CallID, Name: fc.Name}

	tool, ok := a.registry.Get(fc.Name)
	if !ok {
		slog.Warn("unknown tool call", "agent", a.name, "name", fc.Name)
		res.Content = "error: unknown tool " + fc.Name
		res.IsError = true
		return res
	}

	out, err := withTrace(tool).Execute(ctx, fc.Arguments)
	if err != nil {
		slog.Warn("tool execution failed", "agent", a.name, "name", fc.Name, "error", err)
		res.Content = "error: " + err.Error()
		res.IsError = true
		return res
	}
	res.Content = out
	return res
}

func summarize(results []ToolResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n")
}
