package services

import (
	"errors"
	"fmt"
)

var (
	ErrDriverNotFound   = errors.New("driver not found")
	ErrNotADriver       = errors.New("user is not a driver")
	ErrBuggyNotFound    = errors.New("buggy not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrRequestNotFound  = errors.New("guest request not found")
	ErrNoActiveSession  = errors.New("driver has no active buggy session")
)

// ValidationError reports a precondition the caller must resolve before
// retrying, such as active buggies blocking a location delete. BlockingCount
// is zero when no count applies.
type ValidationError struct {
	Message       string
	BlockingCount int
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
