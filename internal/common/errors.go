package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Extraction failure taxonomy. Tier-level failures are recovered inside the
// orchestrator; only the page-level ones reach the caller, and then as
// per-page outcomes rather than batch aborts.
var (
	ErrTierUnavailable   = errors.New("tier unavailable")
	ErrLowConfidence     = errors.New("confidence below threshold")
	ErrStructuralInvalid = errors.New("structurally invalid result")
	ErrNormalization     = errors.New("normalization failed")
	ErrPersistence       = errors.New("persistence conflict")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
