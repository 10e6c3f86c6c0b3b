package utils

import (
	"errors"
	"fmt"
)

// ValidationError represents a rejected request field. Err, when set, is the
// underlying cause and stays reachable through errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// NewFieldError attributes a validation failure to a request field.
func NewFieldError(field string, err error) error {
	return &ValidationError{
		Field:   field,
		Message: err.Error(),
		Err:     err,
	}
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
