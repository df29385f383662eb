package engine

import (
	"context"

	"walletflow/internal/core"
	"walletflow/internal/log"
)

// LogAnalytics writes analytics events to the structured log. It is the
// default when no message broker is configured.
type LogAnalytics struct {
	structured *log.StructuredLogger
}

func NewLogAnalytics(logger *log.Logger) *LogAnalytics {
	return &LogAnalytics{structured: log.NewStructuredLogger(logger.WithComponent(log.ComponentEngine))}
}

func (a *LogAnalytics) Track(ctx context.Context, e core.Event) {
	a.structured.LogEvent(ctx, string(e.Name), e.Properties)
}
