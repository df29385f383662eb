// Package worker consumes analytics events published by the engine.
package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"walletflow/internal/amqp"
	"walletflow/internal/core"
	"walletflow/internal/log"
)

var knownEvents = map[core.EventName]struct{}{
	core.EventItemCreated:        {},
	core.EventItemDeleted:        {},
	core.EventTransactionCreated: {},
	core.EventTransactionDeleted: {},
	core.EventDragCompleted:      {},
	core.EventRatesRefreshed:     {},
	core.EventError:              {},
}

// AnalyticsWorker logs every event and keeps per-name counters that are
// summarized periodically.
type AnalyticsWorker struct {
	logger     *log.Logger
	structured *log.StructuredLogger

	mu       sync.Mutex
	counts   map[core.EventName]int
	unknown  int
	lastSeen time.Time
}

func NewAnalyticsWorker(logger *log.Logger) *AnalyticsWorker {
	l := logger.WithComponent(log.ComponentWorker)
	return &AnalyticsWorker{
		logger:     l,
		structured: log.NewStructuredLogger(l),
		counts:     make(map[core.EventName]int),
	}
}

// HandleEvent processes a single analytics message from AMQP. Unknown event
// names are counted and dropped rather than requeued forever.
func (w *AnalyticsWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := knownEvents[msg.Name]; !ok {
		w.unknown++
		w.logger.WarnContext(ctx, "Unknown analytics event", log.FieldEvent, msg.Name)
		return nil
	}
	w.counts[msg.Name]++
	if msg.At.After(w.lastSeen) {
		w.lastSeen = msg.At
	}
	w.structured.LogEvent(ctx, string(msg.Name), msg.Properties)
	return nil
}

// Counts returns a copy of the per-event counters.
func (w *AnalyticsWorker) Counts() map[core.EventName]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[core.EventName]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// LogSummary writes one line with every counter.
func (w *AnalyticsWorker) LogSummary(ctx context.Context) {
	counts := w.Counts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, string(name))
	}
	sort.Strings(names)

	args := make([]any, 0, 2*len(names)+4)
	for _, name := range names {
		args = append(args, name, counts[core.EventName(name)])
	}
	w.mu.Lock()
	args = append(args, "unknown", w.unknown, "last_event_at", w.lastSeen)
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "Analytics summary", args...)
}

// RunSummaries logs a summary every interval until ctx is cancelled.
func (w *AnalyticsWorker) RunSummaries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.LogSummary(context.Background())
			return
		case <-ticker.C:
			w.LogSummary(ctx)
		}
	}
}
