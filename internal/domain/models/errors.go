package models

import (
	"errors"
	"strings"
)

var (
	// ErrUpstreamUnavailable means no price source answered and nothing was cached.
	ErrUpstreamUnavailable = errors.New("upstream price sources unavailable")
	// ErrUnknownSource is returned for producers outside the source enum.
	ErrUnknownSource = errors.New("unknown signal source")
	// ErrNoStoredPrices means the price mirror is empty.
	ErrNoStoredPrices = errors.New("no stored prices")
)

// Violation describes one rejected field.
type Violation struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError is returned when producer input is rejected. It is never retried.
type ValidationError struct {
	Violations []Violation
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Code: code, Message: message}}}
}

func (e *ValidationError) Add(field, code, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Code: code, Message: message})
}

func (e *ValidationError) HasViolations() bool { return e != nil && len(e.Violations) > 0 }

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
