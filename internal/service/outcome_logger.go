package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/internal/observability"
)

const (
	// DefaultSupportLogBuffer is the number of entries held while the writer catches up.
	DefaultSupportLogBuffer = 256
	// DefaultSupportLogTimeout bounds a single insert.
	DefaultSupportLogTimeout = 5 * time.Second
)

// SupportLogWriter persists support log entries.
type SupportLogWriter interface {
	Insert(ctx context.Context, entry *models.SupportLogEntry) error
}

// OutcomeLogger writes support log entries in the background. Log never blocks the caller and
// never reports an error: a full buffer drops the entry and a failed insert is only logged.
type OutcomeLogger struct {
	entries chan models.SupportLogEntry
	writer  SupportLogWriter
	timeout time.Duration
	metrics observability.SupportLogMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewOutcomeLogger starts the background writer. metrics may be nil.
func NewOutcomeLogger(
	writer SupportLogWriter, bufferSize int, timeout time.Duration, metrics observability.SupportLogMetrics,
) *OutcomeLogger {
	if bufferSize <= 0 {
		bufferSize = DefaultSupportLogBuffer
	}

	if timeout <= 0 {
		timeout = DefaultSupportLogTimeout
	}

	l := &OutcomeLogger{
		entries: make(chan models.SupportLogEntry, bufferSize),
		writer:  writer,
		timeout: timeout,
		metrics: metrics,
	}

	l.wg.Go(l.run)

	return l
}

// Log enqueues entry for insertion.
func (l *OutcomeLogger) Log(ctx context.Context, entry models.SupportLogEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		slog.Warn("support log closed, entry dropped", "handoff", entry.Handoff)

		return
	}

	select {
	case l.entries <- entry:
	default:
		slog.Warn("support log buffer full, entry dropped",
			"handoff", entry.Handoff,
			"latency_ms", entry.LatencyMS,
		)

		if l.metrics != nil {
			l.metrics.RecordDropped(ctx)
		}
	}
}

// run drains the channel until Shutdown closes it. Each insert gets its own timeout so one
// stuck DB call cannot freeze the writer.
func (l *OutcomeLogger) run() {
	bgCtx := context.Background()

	for entry := range l.entries {
		ctx, cancel := context.WithTimeout(bgCtx, l.timeout)

		if err := l.writer.Insert(ctx, &entry); err != nil {
			reason := "insert_failed"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}

			slog.Warn("support log insert failed", "reason", reason, "error", err)

			if l.metrics != nil {
				l.metrics.RecordWriteFailure(bgCtx, reason)
			}
		}

		cancel()
	}
}

// Shutdown stops accepting entries and waits for the buffer to drain.
func (l *OutcomeLogger) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()

		return
	}

	l.closed = true
	close(l.entries)
	l.mu.Unlock()

	l.wg.Wait()
}
