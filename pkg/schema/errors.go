package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeExecution      = "EXECUTION_ERROR"
	ErrCodeConfirmation   = "CONFIRMATION_ERROR"
	ErrCodeToken          = "TOKEN_ERROR"
	ErrCodeCancelled      = "CANCELLED"
	ErrCodeRetryExhausted = "RETRY_EXHAUSTED"
	ErrCodeStore          = "STORE_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
)

// PilotError is the structured error type for all autopilot operations.
type PilotError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Step    int            `json:"step,omitempty"`
	Cause   error          `json:"-"`
}

func (e *PilotError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("[%s] step %d: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PilotError) Unwrap() error {
	return e.Cause
}

// NewError creates a new PilotError.
func NewError(code, message string) *PilotError {
	return &PilotError{Code: code, Message: message}
}

// NewErrorf creates a new PilotError with a formatted message.
func NewErrorf(code, format string, args ...any) *PilotError {
	return &PilotError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a 1-based step index to the error.
func (e *PilotError) WithStep(index int) *PilotError {
	e.Step = index
	return e
}

// WithCause attaches an underlying cause.
func (e *PilotError) WithCause(err error) *PilotError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *PilotError) WithDetails(details map[string]any) *PilotError {
	e.Details = details
	return e
}
