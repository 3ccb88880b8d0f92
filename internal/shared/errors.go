package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks input that failed a local check. No state changes.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidToken marks an unknown, consumed or expired signature token. Terminal.
	ErrInvalidToken = errors.New("invalid or expired signature token")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the backend rejected the forwarded credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the request clashes with the current resource state.
	ErrConflict = errors.New("conflict")
	// ErrNetwork wraps transport failures talking to the CRM backend. Retryable.
	ErrNetwork = errors.New("crm backend unreachable")
	// ErrBackend wraps 5xx answers from the CRM backend. Retryable.
	ErrBackend = errors.New("crm backend error")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another field failure.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsRetryable reports whether the caller may offer a "try again" action.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrBackend)
}
