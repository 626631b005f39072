package log

import "moneymind/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldSource        = "source"
	FieldConfidence    = "confidence"
	FieldEventID       = "event_id"
	FieldCount         = "count"
	FieldBackend       = "backend"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentCategorize = "categorize"
	ComponentInsight    = "insight"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentLLM        = "llm"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpCategorize = "categorize"
	OpGenerate   = "generate"
	OpCommit     = "commit"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message. A nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithCategorized adds the fields of a categorization event.
func (f LogFields) WithCategorized(evt core.TransactionCategorized) LogFields {
	f[FieldEventID] = evt.EventID
	f[FieldTransactionID] = evt.TransactionID
	f[FieldCategoryID] = evt.CategoryID
	f[FieldSource] = string(evt.Source)
	f[FieldConfidence] = evt.Confidence
	return f
}

// ToSlice converts LogFields to key/value pairs for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
