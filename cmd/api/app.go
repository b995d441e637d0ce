package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/formbricks/support-hub/internal/api/handlers"
	"github.com/formbricks/support-hub/internal/api/middleware"
	"github.com/formbricks/support-hub/internal/config"
	"github.com/formbricks/support-hub/internal/googleai"
	"github.com/formbricks/support-hub/internal/observability"
	"github.com/formbricks/support-hub/internal/openai"
	"github.com/formbricks/support-hub/internal/repository"
	"github.com/formbricks/support-hub/internal/service"
	"github.com/formbricks/support-hub/internal/workers"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx] // nil when the indexer is disabled
	outcomes       *service.OutcomeLogger
	meterProvider  *observability.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

var errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")

const (
	embeddingProviderOpenAI = "openai"
	embeddingProviderGoogle = "google"

	riverQueueDepthInterval = 15 * time.Second
	riverJobTimeout         = 60 * time.Second

	insertMaxRetries     = 3
	insertInitialBackoff = 500 * time.Millisecond
	insertMaxBackoff     = 5 * time.Second
)

// setupMetrics creates the meter provider and support metrics when metrics are enabled.
// Returns (nil, nil, nil) when the exporter is unset or unsupported.
func setupMetrics(
	ctx context.Context, cfg *config.Config,
) (*observability.MeterProvider, *observability.Metrics, error) {
	mp, err := observability.NewMeterProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter(observability.MeterScope))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, metrics, nil
}

// newEmbeddingClient returns the provider client selected by EMBEDDING_PROVIDER.
// Query embeddings and stored FAQ embeddings always come from the same client.
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case embeddingProviderOpenAI:
		return openai.NewEmbeddingClient(cfg.EmbeddingAPIKey,
			openai.WithBaseURL(cfg.EmbeddingBaseURL),
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case embeddingProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (app *App, err error) {
	var (
		meterProvider  *observability.MeterProvider
		tracerProvider *sdktrace.TracerProvider
		metrics        *observability.Metrics
	)

	// Release whatever was created when a later step fails.
	defer func() {
		if err == nil {
			return
		}

		if err2 := shutdownObservability(context.Background(), tracerProvider, meterProvider); err2 != nil {
			slog.Error("shutdown observability after startup error", "error", err2)
		}
	}()

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, metrics, err = setupMetrics(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// request_id (and trace_id/span_id when tracing is on) appear in every log line.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider.MeterProvider)
	}

	var (
		cacheMetrics      observability.CacheMetrics
		providerMetrics   observability.ProviderMetrics
		answerMetrics     observability.AnswerMetrics
		supportLogMetrics observability.SupportLogMetrics
		indexerMetrics    observability.IndexerMetrics
		apiMetrics        observability.APIMetrics
	)
	if metrics != nil {
		cacheMetrics = metrics.Cache
		providerMetrics = metrics.Providers
		answerMetrics = metrics.Answers
		supportLogMetrics = metrics.SupportLog
		indexerMetrics = metrics.Indexer
		apiMetrics = metrics.API
	}

	embeddingClient, err := newEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	policy := service.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.EmbeddingMaxAttempts
	policy.BaseDelay = cfg.EmbeddingBaseDelay
	policy.Timeout = cfg.EmbeddingTimeout
	policy.Name = "embeddings"

	embedder, err := service.NewQueryEmbedder(embeddingClient, service.QueryEmbedderConfig{
		CacheSize:       cfg.EmbeddingCacheSize,
		Policy:          policy,
		CacheMetrics:    cacheMetrics,
		ProviderMetrics: providerMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create query embedder: %w", err)
	}

	generator := openai.NewChatClient(cfg.GenerationAPIKey,
		openai.WithChatBaseURL(cfg.GenerationBaseURL),
		openai.WithChatModel(cfg.GenerationModel),
	)

	faqsRepo := repository.NewFAQsRepository(db)
	supportLogRepo := repository.NewSupportLogRepository(db)

	outcomes := service.NewOutcomeLogger(supportLogRepo, cfg.SupportLogBuffer, cfg.SupportLogTimeout, supportLogMetrics)

	answers := service.NewAnswerService(embedder, faqsRepo, generator, outcomes, service.AnswerServiceConfig{
		TopK:                cfg.TopK,
		FocusSize:           cfg.FocusSize,
		SimilarityThreshold: cfg.SimilarityThreshold,
		HandoffThreshold:    cfg.HandoffThreshold,
		RetrievalTimeout:    cfg.RetrievalTimeout,
		GenerationTimeout:   cfg.GenerationTimeout,
		ContextMaxChars:     cfg.ContextMaxChars,
		Metrics:             answerMetrics,
		ProviderMetrics:     providerMetrics,
	})

	var riverClient *river.Client[pgx.Tx]

	indexService := service.NewFAQIndexService(faqsRepo, nil, cfg.IndexerMaxAttempts, indexerMetrics)

	if cfg.IndexerEnabled {
		riverWorkers := river.NewWorkers()
		river.AddWorker(riverWorkers,
			workers.NewFAQEmbeddingWorker(indexService, embeddingClient, cfg.EmbeddingRateLimit, indexerMetrics))

		riverClient, err = river.NewClient(riverpgxv5.New(db), &river.Config{
			Queues: map[string]river.QueueConfig{
				service.EmbeddingsQueueName: {MaxWorkers: cfg.IndexerMaxWorkers},
			},
			Workers:      riverWorkers,
			ErrorHandler: &workers.ErrorHandler{},
			JobTimeout:   riverJobTimeout,
			MaxAttempts:  cfg.IndexerMaxAttempts,
		})
		if err != nil {
			outcomes.Shutdown()

			return nil, fmt.Errorf("create River client: %w", err)
		}

		indexService.SetInserter(service.NewRetryingJobInserter(riverClient, service.RetryingJobInserterConfig{
			MaxRetries:     insertMaxRetries,
			InitialBackoff: insertInitialBackoff,
			MaxBackoff:     insertMaxBackoff,
		}))

		slog.Info("indexer enabled",
			"queue", service.EmbeddingsQueueName,
			"workers", cfg.IndexerMaxWorkers,
			"max_attempts", cfg.IndexerMaxAttempts,
			"rate_limit", cfg.EmbeddingRateLimit,
		)
	} else {
		slog.Info("indexer disabled (INDEXER_ENABLED=false)")
	}

	server := newHTTPServer(cfg, serverHandlers{
		health:     handlers.NewHealthHandler(),
		chat:       handlers.NewSupportChatHandler(answers),
		supportLog: handlers.NewSupportLogHandler(service.NewSupportLogService(supportLogRepo)),
		faqs:       handlers.NewFAQsHandler(indexService),
	}, apiMetrics, meterProvider, tracerProvider)

	slog.Info("support pipeline ready",
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
		"generation_model", cfg.GenerationModel,
		"top_k", cfg.TopK,
		"similarity_threshold", cfg.SimilarityThreshold,
		"handoff_threshold", cfg.HandoffThreshold,
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		river:          riverClient,
		outcomes:       outcomes,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

type serverHandlers struct {
	health     *handlers.HealthHandler
	chat       *handlers.SupportChatHandler
	supportLog *handlers.SupportLogHandler
	faqs       *handlers.FAQsHandler
}

// newHTTPServer builds the HTTP server and muxes (no auth on the chat endpoint and /health,
// API key on /v1/). Handler chain: Metrics -> RequestID -> otelhttp(Logging(MaxBody(mux))).
func newHTTPServer(
	cfg *config.Config,
	h serverHandlers,
	apiMetrics observability.APIMetrics,
	meterProvider *observability.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", h.health.Check)

	// CORS answers the OPTIONS preflight itself, so the route is registered without a method.
	public.Handle("/api/support-chat", middleware.CORS(cfg.CORSAllowedOrigins)(
		methodOnly(http.MethodPost, http.HandlerFunc(h.chat.Chat)),
	))

	if meterProvider != nil && meterProvider.Handler != nil {
		public.Handle("GET /metrics", meterProvider.Handler)
	}

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/support-log", h.supportLog.List)
	protected.HandleFunc("POST /v1/faqs/reindex", h.faqs.Reindex)

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.Auth(cfg.APIKey, apiMetrics)(protected))
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider.MeterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so access logs carry trace_id/span_id.
	inner := middleware.Logging(middleware.MaxBody(cfg.MaxRequestBodyBytes, apiMetrics)(mux))
	handler := otelhttp.NewHandler(inner, observability.ServiceName, otelOpts...)
	handler = middleware.RequestID(handler)
	handler = middleware.Metrics(apiMetrics)(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 30 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// methodOnly lets OPTIONS and the given method through and answers 405 otherwise.
func methodOnly(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && r.Method != http.MethodOptions {
			w.Header().Set("Allow", method+", "+http.MethodOptions)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and, when enabled, River; then blocks until ctx is cancelled
// (e.g. signal) or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.river != nil {
		if a.metrics != nil && a.metrics.Indexer != nil {
			go runRiverQueueDepthPoller(riverCtx, a.db, a.metrics.Indexer)
		}

		go func() {
			if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case runErr <- fmt.Errorf("river: %w", err):
				default:
				}
			}
		}()
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the embeddings queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, indexerMetrics observability.IndexerMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int64

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			service.EmbeddingsQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		indexerMetrics.SetQueueDepth(ctx, count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(
	ctx context.Context, tracer *sdktrace.TracerProvider, meter *observability.MeterProvider,
) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server, River and the outcome logger in order. Call after Run returns.
// Observability is shut down last; its error is returned only when everything else succeeded.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	// Pending support_log writes are flushed after the last request has been answered.
	defer a.outcomes.Shutdown()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if a.river != nil {
			if stopErr := a.river.Stop(ctx); stopErr != nil {
				slog.Error("river stop during server shutdown", "error", stopErr)
			}
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if a.river != nil {
		if err = a.river.Stop(ctx); err != nil {
			return fmt.Errorf("river stop: %w", err)
		}
	}

	return nil
}
