package contracts

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is matched by every entity construction failure
var ErrInvalidArgument = errors.New("invalid argument")

// ValidationError reports the offending field of a rejected record
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidArgument) hold for validation failures
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
