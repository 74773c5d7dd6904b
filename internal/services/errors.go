package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/whiskeyshelf/apiserver/internal/validation"
)

// ErrInvalidCredentials is returned when a login cannot be matched to an
// active account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports rejected input keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// asValidationError lifts validator output into a ValidationError and
// passes any other error through.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}
