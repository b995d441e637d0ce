package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span names of the answer pipeline stages.
const (
	SpanAnswer     = "support.answer"
	SpanPreflight  = "support.preflight"
	SpanEmbed      = "support.embed_query"
	SpanRetrieve   = "support.retrieve"
	SpanGenerate   = "support.generate"
	SpanIndexFAQ   = "support.index_faq"
	defaultSampler = "parentbased_always_on"
)

// newSpanExporter returns the exporter named by OTEL_TRACES_EXPORTER, or (nil, nil) when the
// name is empty or unknown. The OTLP exporter reads OTEL_EXPORTER_OTLP_* from the environment.
func newSpanExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "otlp":
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create OTLP HTTP trace exporter: %w", err)
		}

		return exp, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}

		return exp, nil
	default:
		//nolint:nilnil // tracing disabled, caller checks for nil
		return nil, nil
	}
}

// samplers maps OTEL_TRACES_SAMPLER values to constructors taking the parsed ratio.
var samplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(r)
	},
	"parentbased_traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r))
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
}

// newSampler builds the sampler from OTEL_TRACES_SAMPLER and OTEL_TRACES_SAMPLER_ARG.
// Unknown names fall back to parentbased_always_on; a missing or invalid ratio means 1.
func newSampler() sdktrace.Sampler {
	build, ok := samplers[os.Getenv("OTEL_TRACES_SAMPLER")]
	if !ok {
		build = samplers[defaultSampler]
	}

	return build(samplerRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG")))
}

func samplerRatio(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return 1
	}

	return f
}

// StartSpan starts a pipeline span on the global tracer. With tracing disabled the global
// provider is a no-op and the span costs nothing.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterScope).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (when non-nil) as the span status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
