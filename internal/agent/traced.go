package agent

import (
	"context"
	"log/slog"
	"time"

	"stockteam/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// tracedTool wraps a tool call in a span tagged with the speaking
// participant and the run.
type tracedTool struct {
	Tool
}

func withTrace(t Tool) Tool {
	if _, ok := t.(*tracedTool); ok {
		return t
	}
	return &tracedTool{Tool: t}
}

func (t *tracedTool) Execute(ctx context.Context, input string) (string, error) {
	speaker := SpeakerFromContext(ctx)
	runID := RunIDFromContext(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.tool.name", t.Name()),
		attribute.String("gen_ai.tool.input", input),
	}
	if speaker != "" {
		attrs = append(attrs, attribute.String("team.speaker", speaker))
	}
	if runID != "" {
		attrs = append(attrs, attribute.String("team.run_id", runID))
	}
	ctx, span := trace.Tracer().Start(ctx, "tool."+t.Name(), oteltrace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	result, err := t.Tool.Execute(ctx, input)
	elapsed := time.Since(start)

	log := slog.With("tool", t.Name(), "speaker", speaker, "run_id", runID, "elapsed", elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("tool failed", "error", err)
		return result, err
	}

	span.SetAttributes(attribute.Int("gen_ai.tool.output_length", len(result)))
	log.Debug("tool finished", "output_length", len(result))
	return result, nil
}
