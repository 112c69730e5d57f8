package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

var (
	// ErrEmptyCart is returned by checkout when the user has no cart lines.
	ErrEmptyCart = fmt.Errorf("cart is empty: %w", ErrBadRequest)
	// ErrInvalidCredentials never says whether the account exists.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
)

// FieldIssue describes one failed rule on one input field.
type FieldIssue struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError carries field-level issues for malformed or out-of-range input.
type ValidationError struct {
	Message string
	Fields  []FieldIssue
}

func NewValidationError(msg string, fields ...FieldIssue) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("field '%s' failed '%s'", f.Field, f.Rule))
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }
