// Package observability provides OpenTelemetry metrics, tracing and log correlation for the support API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameCacheHits      = "support_cache_hits_total"
	MetricNameCacheMisses    = "support_cache_misses_total"
	MetricNameCacheEvictions = "support_cache_evictions_total"

	MetricNameProviderAttempts = "support_provider_attempts_total"
	MetricNameProviderDuration = "support_provider_attempt_duration_seconds"

	MetricNameAnswers        = "support_answers_total"
	MetricNameAnswerDuration = "support_answer_duration_seconds"

	MetricNameSupportLogDropped = "support_log_dropped_total"
	MetricNameSupportLogFailed  = "support_log_write_failures_total"

	MetricNameIndexerJobsEnqueued = "support_indexer_jobs_enqueued_total"
	MetricNameIndexerOutcomes     = "support_indexer_outcomes_total"
	MetricNameIndexerDuration     = "support_indexer_job_duration_seconds"
	MetricNameRiverQueueDepth     = "support_river_queue_depth"

	MetricNameHTTPRequests        = "support_http_requests_total"
	MetricNameHTTPRequestDuration = "support_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge = "support_request_body_too_large_total"
	MetricNameAuthFailures        = "support_auth_failures_total"
)

// Attribute keys.
const (
	AttrBranch      = "branch"
	AttrCache       = "cache"
	AttrHandoff     = "handoff"
	AttrMethod      = "method"
	AttrOutcome     = "outcome"
	AttrProvider    = "provider"
	AttrReason      = "reason"
	AttrRoute       = "route"
	AttrStatus      = "status"
	AttrStatusClass = "status_class"
)

// AllowedCacheNames for the cache label.
var AllowedCacheNames = map[string]bool{
	"query_embedding": true,
}

// AllowedProviders for support_provider_attempts_total.
var AllowedProviders = map[string]bool{
	"embeddings": true,
	"chat":       true,
}

// AllowedAttemptOutcomes for support_provider_attempts_total.
var AllowedAttemptOutcomes = map[string]bool{
	"success":   true,
	"retryable": true,
	"terminal":  true,
	"canceled":  true,
}

// AllowedBranches mirrors the answer pipeline's terminal branches.
var AllowedBranches = map[string]bool{
	"preflight":              true,
	"short_circuit":          true,
	"generated":              true,
	"refused_out_of_scope":   true,
	"refused_no_anchor":      true,
	"no_match":               true,
	"embedding_unavailable":  true,
	"retrieval_failed":       true,
	"generation_unavailable": true,
}

// AllowedIndexerStatuses for support_indexer_outcomes_total and its duration histogram.
var AllowedIndexerStatuses = map[string]bool{
	"success":         true,
	"failed":          true,
	"skipped_missing": true,
	"failed_final":    true,
}

// AllowedSupportLogReasons for support_log_write_failures_total.
var AllowedSupportLogReasons = map[string]bool{
	"insert_failed": true,
	"timeout":       true,
}

// AllowedAuthReasons for support_auth_failures_total.
var AllowedAuthReasons = map[string]bool{
	"missing_header": true,
	"invalid_format": true,
	"invalid_key":    true,
}

// NormalizeReason returns value if in allowed, otherwise "other".
func NormalizeReason(value string, allowed map[string]bool) string {
	if allowed[value] {
		return value
	}

	return "other"
}
