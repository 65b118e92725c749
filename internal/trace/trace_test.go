package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInstallExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := Install(exp, 0)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	ctx, parent := Tracer().Start(context.Background(), "team.run")
	_, child := Tracer().Start(ctx, "agent.step")
	child.End()
	parent.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "agent.step", spans[0].Name)
	assert.Equal(t, "team.run", spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func TestInstallSamplesNothingAtTinyRatio(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := Install(exp, 1e-12)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	for i := 0; i < 20; i++ {
		_, span := Tracer().Start(context.Background(), "team.run")
		span.End()
	}
	require.NoError(t, tp.ForceFlush(context.Background()))
	assert.Empty(t, exp.GetSpans())
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions(Config{}), 1)
	assert.Len(t, exporterOptions(Config{Endpoint: "localhost:4318", URLPath: "/v1/traces", APIKey: "k", Insecure: true}), 5)
}
