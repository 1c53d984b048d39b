package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldPurchaseID = "purchase_id"
	FieldConcept    = "concept"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldSaved      = "saved"
	FieldDuplicates = "duplicates"
	FieldRejected   = "rejected"
	FieldCandidates = "candidates"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentPurchase  = "purchase"
	ComponentReport    = "report"
	ComponentStatement = "statement"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpReport   = "report"
	OpProject  = "project"
	OpExtract  = "extract"
	OpExport   = "export"
	OpSync     = "sync"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
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

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithPurchase adds the identifying fields of a purchase.
func (f LogFields) WithPurchase(id int64, concept string, category string, amount string) LogFields {
	if id != 0 {
		f[FieldPurchaseID] = id
	}
	f[FieldConcept] = concept
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

// WithBatch adds the counters of a batch insert.
func (f LogFields) WithBatch(saved, duplicates, rejected int) LogFields {
	f[FieldSaved] = saved
	f[FieldDuplicates] = duplicates
	f[FieldRejected] = rejected
	return f
}

func (f LogFields) WithMonth(month string) LogFields {
	f[FieldMonth] = month
	return f
}

// WithHTTP adds request and response fields.
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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
