package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides domain-level logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogTransaction logs a transaction being applied or reverted
func (sl *StructuredLogger) LogTransaction(ctx context.Context, op, id, sourceID, destinationID string, amount, rate float64, currency string) {
	fields := NewFields().
		WithTransaction(id, sourceID, destinationID, amount, rate, currency).
		WithOperation(op).
		WithComponent(ComponentLedger)

	sl.logger.InfoContext(ctx, "Transaction "+op, fields.ToSlice()...)
}

// LogItem logs an item lifecycle change
func (sl *StructuredLogger) LogItem(ctx context.Context, op, id, kind, currency string) {
	fields := NewFields().
		WithItem(id, kind, currency).
		WithOperation(op).
		WithComponent(ComponentLedger)

	sl.logger.InfoContext(ctx, "Wallet item "+op, fields.ToSlice()...)
}

// LogEvent logs a named analytics event with free-form properties
func (sl *StructuredLogger) LogEvent(ctx context.Context, name string, props map[string]string) {
	args := []any{FieldEvent, name}
	for k, v := range props {
		args = append(args, k, v)
	}
	sl.logger.InfoContext(ctx, "Analytics event", args...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
