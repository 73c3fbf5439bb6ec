package core

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated  = errors.New("unauthorized")
	ErrMissingParameter = errors.New("missing parameter")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// ValidationError carries per-field messages. The zero value is not usable; use
// NewValidationError.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// FieldError is shorthand for a validation error on a single field.
func FieldError(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

// Add records msg for field; the first message for a field wins.
func (v *ValidationError) Add(field, msg string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// Merge copies fields of other under prefix (e.g. "[2].").
func (v *ValidationError) Merge(prefix string, other *ValidationError) {
	for f, m := range other.Fields {
		v.Add(prefix+f, m)
	}
}

func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

// OrNil returns nil when no field failed, so callers can `return verr.OrNil()`.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
