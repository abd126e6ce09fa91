// Package apierror provides the error envelope returned by every 4xx/5xx
// response. Internal details (SQL, stack traces) never reach the client.
package apierror

// Machine-readable codes; Detail stays human (French, operator-facing).
const (
	CodeValidation         = "validation"
	CodeConflict           = "conflict"
	CodeInvalidState       = "invalid_state"
	CodeNotFound           = "not_found"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode returns an envelope carrying a machine-readable code.
func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// NewValidation wraps per-field validation failures.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Detail: "Erreur de validation", Code: CodeValidation, Fields: fields}
}
