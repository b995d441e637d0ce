package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewTraceContextHandler(slog.NewTextHandler(buf, nil)))
}

func TestTraceContextHandler_request_id(t *testing.T) {
	var buf bytes.Buffer

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	newTestLogger(&buf).InfoContext(ctx, "answer finalized", "branch", "preflight")

	assert.Contains(t, buf.String(), "request_id=req-42")
	assert.Contains(t, buf.String(), "branch=preflight")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestTraceContextHandler_trace_ids(t *testing.T) {
	var buf bytes.Buffer

	tp := trace.NewTracerProvider(trace.WithSpanProcessor(trace.NewSimpleSpanProcessor(tracetest.NewInMemoryExporter())))
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	newTestLogger(&buf).InfoContext(ctx, "hello")

	assert.Contains(t, buf.String(), "trace_id="+span.SpanContext().TraceID().String())
	assert.Contains(t, buf.String(), "span_id="+span.SpanContext().SpanID().String())
}

func TestTraceContextHandler_redacts_credentials(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestLogger(&buf).With("api_key", "sk-live-123")
	logger.Info("provider call",
		"Authorization", "Bearer abc",
		slog.Group("provider", "token", "t-1", "model", "jina-embeddings-v3"),
	)

	out := buf.String()
	assert.NotContains(t, out, "sk-live-123")
	assert.NotContains(t, out, "Bearer abc")
	assert.NotContains(t, out, "t-1")
	assert.Contains(t, out, "api_key="+redacted)
	assert.Contains(t, out, "provider.model=jina-embeddings-v3")
}

func TestNewSampler(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER", "traceidratio")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	assert.Contains(t, newSampler().Description(), "TraceIDRatioBased{0.25}")

	t.Setenv("OTEL_TRACES_SAMPLER", "bogus")
	assert.Contains(t, newSampler().Description(), "ParentBased{root:AlwaysOnSampler")

	assert.InDelta(t, 1.0, samplerRatio("1.5"), 1e-9)
	assert.InDelta(t, 1.0, samplerRatio(""), 1e-9)
	assert.InDelta(t, 0.1, samplerRatio("0.1"), 1e-9)
}

func TestNewSpanExporter_unknown_is_disabled(t *testing.T) {
	exp, err := newSpanExporter(context.Background(), "jaeger")
	require.NoError(t, err)
	assert.Nil(t, exp)

	exp, err = newSpanExporter(context.Background(), "stdout")
	require.NoError(t, err)
	assert.NotNil(t, exp)
}
