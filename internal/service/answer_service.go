package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/formbricks/support-hub/internal/huberrors"
	"github.com/formbricks/support-hub/internal/intent"
	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/internal/observability"
)

var (
	// ErrRetrievalFailed is returned when the knowledge-base search itself failed (not an empty result).
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrGenerationUnavailable marks a failed generation call; the caller receives the refusal instead.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// Answer pipeline defaults.
const (
	DefaultTopK                = 5
	DefaultFocusSize           = 3
	DefaultSimilarityThreshold = 0.76
	DefaultRetrievalTimeout    = 5 * time.Second
	DefaultGenerationTimeout   = 15 * time.Second
)

const systemPrompt = `Tu es un assistant de support e-commerce STRICT.
- Réponds UNIQUEMENT avec les CONTEXTES (FAQs) fournis.
- Si la question n'est pas couverte, refuse poliment et propose un transfert humain.
- N'AJOUTE PAS toi-même une section "Sources:" dans ta réponse (elle est ajoutée par le serveur).
- Pas d'invention. Sois concis et précis.`

// QueryVectorizer returns the embedding of a user question.
type QueryVectorizer interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FAQRetriever searches the knowledge base.
type FAQRetriever interface {
	MatchFAQs(ctx context.Context, embedding []float32, matchCount int, threshold float64) ([]models.MatchCandidate, error)
	FindByAnchor(ctx context.Context, anchor string) (*models.MatchCandidate, error)
}

// OutcomeSink records finalized answers.
type OutcomeSink interface {
	Log(ctx context.Context, entry models.SupportLogEntry)
}

// AnswerServiceConfig holds the answer policy. Zero values take the defaults.
type AnswerServiceConfig struct {
	TopK                int
	FocusSize           int
	SimilarityThreshold float64
	HandoffThreshold    float64
	RetrievalTimeout    time.Duration
	GenerationTimeout   time.Duration
	ContextMaxChars     int

	Metrics         observability.AnswerMetrics
	ProviderMetrics observability.ProviderMetrics
}

// AnswerService answers one support question from the knowledge base, or refuses with a
// human-handoff offer when the evidence is not good enough.
type AnswerService struct {
	embedder  QueryVectorizer
	retriever FAQRetriever
	generator Generator
	sink      OutcomeSink

	preflight    *intent.Matcher
	shortCircuit *intent.Matcher
	reranker     *intent.Reranker
	normalizer   *ReplyNormalizer

	cfg AnswerServiceConfig
	now func() time.Time
}

// NewAnswerService wires the pipeline with the built-in rule tables.
func NewAnswerService(
	embedder QueryVectorizer, retriever FAQRetriever, generator Generator, sink OutcomeSink, cfg AnswerServiceConfig,
) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	if cfg.FocusSize <= 0 {
		cfg.FocusSize = DefaultFocusSize
	}

	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}

	if cfg.HandoffThreshold <= 0 || cfg.HandoffThreshold > 1 {
		cfg.HandoffThreshold = DefaultHandoffThreshold
	}

	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultRetrievalTimeout
	}

	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}

	if cfg.ContextMaxChars <= 0 {
		cfg.ContextMaxChars = DefaultContextMaxChars
	}

	return &AnswerService{
		embedder:     embedder,
		retriever:    retriever,
		generator:    generator,
		sink:         sink,
		preflight:    intent.NewMatcher(intent.DefaultPreflightRules()),
		shortCircuit: intent.NewMatcher(intent.DefaultShortCircuitRules()),
		reranker:     intent.NewReranker(intent.DefaultRerankRules()),
		normalizer:   NewReplyNormalizer(cfg.HandoffThreshold),
		cfg:          cfg,
		now:          time.Now,
	}
}

// Answer runs the pipeline for message. Every path ends with exactly one outcome log entry.
// The only error is ErrRetrievalFailed, returned together with the refusal that was logged.
func (s *AnswerService) Answer(ctx context.Context, message string) (models.Reply, error) {
	start := s.now()

	ctx, span := observability.StartSpan(ctx, observability.SpanAnswer)
	defer span.End()

	if reply, ok := s.answerFromPreflight(ctx, message); ok {
		return s.finalize(ctx, start, message, reply), nil
	}

	vec, err := s.embed(ctx, message)
	if err != nil {
		slog.Warn("answer: embedding unavailable, refusing", "error", err)

		return s.finalize(ctx, start, message, s.normalizer.Refusal(models.BranchEmbeddingUnavailable, 0)), nil
	}

	matches, err := s.match(ctx, vec)
	if err != nil {
		slog.Error("answer: retrieval failed", "error", err)

		reply := s.finalize(ctx, start, message, s.normalizer.Refusal(models.BranchRetrievalFailed, 0))
		err = fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
		span.RecordError(err)

		return reply, err
	}

	if len(matches) == 0 {
		return s.finalize(ctx, start, message, s.normalizer.Refusal(models.BranchNoMatch, 0)), nil
	}

	// topSim is the stored similarity of the top-ranked candidate, not the retrieval maximum.
	focused := s.reranker.Rerank(message, matches, s.cfg.FocusSize)
	topSim := focused[0].Similarity

	var reply models.Reply

	switch candidate, ok := s.shortCircuit.MatchShortCircuit(message, focused); {
	case ok:
		reply = s.normalizer.Normalize(candidate.Answer, []models.MatchCandidate{*candidate}, topSim)
		if reply.Branch == models.BranchGenerated {
			reply.Branch = models.BranchShortCircuit
		}
	case allOutOfScope(focused):
		reply = s.normalizer.Refusal(models.BranchRefusedOutOfScope, topSim)
	default:
		reply = s.generate(ctx, message, focused, topSim)
	}

	reply.Matches = matches

	return s.finalize(ctx, start, message, reply), nil
}

// answerFromPreflight serves rule-matched questions straight from the anchored FAQ entry.
// A lookup miss or failure falls through to retrieval.
func (s *AnswerService) answerFromPreflight(ctx context.Context, message string) (models.Reply, bool) {
	anchor, ok := s.preflight.MatchPreflight(message)
	if !ok {
		return models.Reply{}, false
	}

	lookupCtx, span := observability.StartSpan(ctx, observability.SpanPreflight, attribute.String("support.anchor", anchor))

	lookupCtx, cancel := context.WithTimeout(lookupCtx, s.cfg.RetrievalTimeout)
	defer cancel()

	candidate, err := s.retriever.FindByAnchor(lookupCtx, anchor)

	notFound := errors.Is(err, huberrors.ErrNotFound)
	if notFound {
		observability.EndSpan(span, nil)
	} else {
		observability.EndSpan(span, err)
	}

	if err != nil {
		if !notFound {
			slog.Warn("answer: preflight lookup failed, falling through", "anchor", anchor, "error", err)
		}

		return models.Reply{}, false
	}

	reply := s.normalizer.Normalize(candidate.Answer, []models.MatchCandidate{*candidate}, 1)
	if reply.Branch != models.BranchGenerated {
		return models.Reply{}, false
	}

	reply.Branch = models.BranchPreflight
	reply.Matches = []models.MatchCandidate{*candidate}

	return reply, true
}

func (s *AnswerService) embed(ctx context.Context, message string) ([]float32, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanEmbed)

	vec, err := s.embedder.Embed(ctx, message)
	observability.EndSpan(span, err)

	return vec, err
}

func (s *AnswerService) match(ctx context.Context, vec []float32) ([]models.MatchCandidate, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRetrieve,
		attribute.Int("support.top_k", s.cfg.TopK),
		attribute.Float64("support.similarity_threshold", s.cfg.SimilarityThreshold),
	)

	matchCtx, cancel := context.WithTimeout(ctx, s.cfg.RetrievalTimeout)
	defer cancel()

	matches, err := s.retriever.MatchFAQs(matchCtx, vec, s.cfg.TopK, s.cfg.SimilarityThreshold)
	if err != nil {
		err = fmt.Errorf("match faqs: %w", err)
	}

	span.SetAttributes(attribute.Int("support.matches", len(matches)))
	observability.EndSpan(span, err)

	return matches, err
}

func (s *AnswerService) generate(
	ctx context.Context, message string, focused []models.MatchCandidate, topSim float64,
) models.Reply {
	system := systemPrompt + "\n\nCONTEXTES:\n" + BuildContext(focused, s.cfg.ContextMaxChars)
	user := "Question:\n" + message + "\n\nRéponds strictement à partir des contextes."

	genCtx, span := observability.StartSpan(ctx, observability.SpanGenerate,
		attribute.Int("support.context_entries", len(focused)),
	)

	genCtx, cancel := context.WithTimeout(genCtx, s.cfg.GenerationTimeout)
	defer cancel()

	started := s.now()
	raw, err := s.generator.Generate(genCtx, system, user)
	observability.EndSpan(span, err)

	if s.cfg.ProviderMetrics != nil {
		outcome := AttemptSuccess
		if err != nil {
			outcome = AttemptTerminal
		}

		s.cfg.ProviderMetrics.RecordAttempt(ctx, "chat", outcome, s.now().Sub(started))
	}

	if err != nil {
		slog.Warn("answer: generation failed, refusing",
			"error", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err),
		)

		return s.normalizer.Refusal(models.BranchGenerationUnavailable, topSim)
	}

	return s.normalizer.Normalize(raw, focused, topSim)
}

// finalize records the outcome and returns reply with non-nil collections.
func (s *AnswerService) finalize(ctx context.Context, start time.Time, message string, reply models.Reply) models.Reply {
	if reply.Sources == nil {
		reply.Sources = []models.Source{}
	}

	if reply.SourceLabels == nil {
		reply.SourceLabels = []string{}
	}

	if reply.Matches == nil {
		reply.Matches = []models.MatchCandidate{}
	}

	latency := s.now().Sub(start)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("support.branch", reply.Branch),
		attribute.Bool("support.handoff", reply.NeedHandoff),
		attribute.Float64("support.top_sim", reply.TopSim),
	)

	s.sink.Log(ctx, models.SupportLogEntry{
		Question:    message,
		Reply:       reply.Body,
		TopSim:      reply.TopSim,
		UsedContext: reply.UsedContext,
		Handoff:     reply.NeedHandoff,
		LatencyMS:   latency.Milliseconds(),
		Sources:     reply.SourceLabels,
	})

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordAnswer(ctx, reply.Branch, reply.NeedHandoff, latency)
	}

	slog.Info("answer finalized",
		"branch", reply.Branch,
		"top_sim", reply.TopSim,
		"handoff", reply.NeedHandoff,
		"sources", len(reply.Sources),
		"latency_ms", latency.Milliseconds(),
	)

	return reply
}
