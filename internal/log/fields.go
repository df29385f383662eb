package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldItemID        = "item_id"
	FieldItemKind      = "item_kind"
	FieldTransactionID = "transaction_id"
	FieldSourceID      = "source_id"
	FieldDestinationID = "destination_id"
	FieldAmount        = "amount"
	FieldRate          = "rate"
	FieldCurrency      = "currency"
	FieldBaseCurrency  = "base_currency"
	FieldPeriod        = "period"
	FieldCommand       = "command"
	FieldSlot          = "slot"
	FieldEvent         = "event"
	FieldCount         = "count"
	FieldDeleteMode    = "delete_mode"
	FieldFallback      = "fallback"
	FieldAttempt       = "attempt"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentEngine    = "engine"
	ComponentLedger    = "ledger"
	ComponentDrag      = "drag"
	ComponentScheduler = "scheduler"
	ComponentRates     = "rates"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRedis     = "redis"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpSave     = "save"
	OpInsert   = "insert"
	OpDelete   = "delete"
	OpApply    = "apply"
	OpRevert   = "revert"
	OpReorder  = "reorder"
	OpRefresh  = "refresh"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, sourceID, destinationID string, amount, rate float64, currency string) LogFields {
	f[FieldTransactionID] = id
	f[FieldSourceID] = sourceID
	f[FieldDestinationID] = destinationID
	f[FieldAmount] = amount
	f[FieldRate] = rate
	f[FieldCurrency] = currency
	return f
}

// WithItem adds item-related fields
func (f LogFields) WithItem(id, kind, currency string) LogFields {
	f[FieldItemID] = id
	f[FieldItemKind] = kind
	f[FieldCurrency] = currency
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
