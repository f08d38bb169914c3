package service

import (
	"errors"
	"fmt"
)

// ErrStudentNotFound indicates the referenced student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// FieldError reports a validation failure tied to one request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, format string, args ...interface{}) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsFieldError unwraps err into a FieldError when possible.
func AsFieldError(err error) (*FieldError, bool) {
	var target *FieldError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
