package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStatus is returned when a status value is outside the lifecycle.
	ErrUnknownStatus = errors.New("unknown machine status")

	// ErrActionNotAllowed is returned when an action is not offered for the current status.
	ErrActionNotAllowed = errors.New("action not allowed for current status")

	// ErrEmptySelection is returned when a return package has no machines.
	ErrEmptySelection = errors.New("select at least one machine")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is (or wraps) a client-side validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrEmptySelection)
}
