package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all support metric collectors. When metrics are disabled, all fields are nil.
// Components accept the individual interfaces and handle nil.
type Metrics struct {
	Cache      CacheMetrics
	Providers  ProviderMetrics
	Answers    AnswerMetrics
	SupportLog SupportLogMetrics
	Indexer    IndexerMetrics
	API        APIMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	providers, err := NewProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("provider metrics: %w", err)
	}

	answers, err := NewAnswerMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("answer metrics: %w", err)
	}

	supportLog, err := NewSupportLogMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("support log metrics: %w", err)
	}

	indexer, err := NewIndexerMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("indexer metrics: %w", err)
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	return &Metrics{
		Cache:      cache,
		Providers:  providers,
		Answers:    answers,
		SupportLog: supportLog,
		Indexer:    indexer,
		API:        api,
	}, nil
}
