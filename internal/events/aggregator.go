package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/google/uuid"
)

// LogEntryStore persists buffered log entries as a single transactional batch.
type LogEntryStore interface {
	InsertBatch(ctx context.Context, entries []models.LogEntry) error
}

type ctxKey struct{}

// buffer holds the entries collected during one request. Each request gets its
// own buffer via the context, so concurrent requests never see each other's
// entries. The mutex covers handlers that spawn goroutines within one request.
type buffer struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

// Aggregator collects audit log entries for the lifetime of one request and
// persists them as one batch when the request finishes. Flushes across all
// requests are serialized by a single mutex; that is a known throughput
// bottleneck under high concurrency, kept as-is.
type Aggregator struct {
	store  LogEntryStore
	logger *slog.Logger

	flushMu sync.Mutex
}

// NewAggregator creates a request event aggregator.
func NewAggregator(store LogEntryStore, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// Begin returns a context carrying a fresh, empty buffer for one request.
func (a *Aggregator) Begin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, &buffer{})
}

// Add appends an entry to the current request's buffer. It never blocks on
// I/O and never fails. A context can't grow a buffer retroactively, so when
// no request scope exists the entry is handed to a background goroutine and
// persisted on its own, best effort.
func (a *Aggregator) Add(ctx context.Context, entry models.LogEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	buf, ok := ctx.Value(ctxKey{}).(*buffer)
	if !ok {
		go a.persist(context.WithoutCancel(ctx), []models.LogEntry{entry})
		return
	}

	buf.mu.Lock()
	buf.entries = append(buf.entries, entry)
	buf.mu.Unlock()
}

// Flush persists every buffered entry for the request in one batch and clears
// the buffer. Empty buffers are a no-op. A persistence failure drops the
// batch for this request; the audit trail is best effort, not durable.
func (a *Aggregator) Flush(ctx context.Context) error {
	buf, ok := ctx.Value(ctxKey{}).(*buffer)
	if !ok {
		return nil
	}

	buf.mu.Lock()
	entries := buf.entries
	buf.entries = nil
	buf.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	return a.persist(ctx, entries)
}

func (a *Aggregator) persist(ctx context.Context, entries []models.LogEntry) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	// The flush must run even when the request was cancelled mid-flight;
	// entries already collected are still worth persisting.
	err := a.store.InsertBatch(context.WithoutCancel(ctx), entries)
	if err != nil {
		a.logger.Error("failed to persist log entry batch",
			slog.Int("entries", len(entries)),
			slog.Any("error", err))
		return err
	}
	return nil
}

// Middleware opens a buffer scope before the handler runs and flushes it when
// the handler returns, including when it panics. Panics are re-raised after
// the flush so an outer recoverer still sees them.
func (a *Aggregator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := a.Begin(r.Context())
			defer func() {
				_ = a.Flush(ctx)
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
