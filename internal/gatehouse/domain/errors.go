package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two causes are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrRateLimited is returned before any credential work happens.
	ErrRateLimited = errors.New("rate_limited")

	// ErrUnauthenticated is the expected outcome of resolving a session
	// token that does not exist (never issued, logged out, or owner deleted).
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError carries field-level messages for user-correctable input
// problems. It is never retried automatically.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OAuthError reports a failed identity reconciliation with a human-readable
// reason. The caller redirects back to the sign-in entry point with it.
type OAuthError struct {
	Reason string
}

func (e *OAuthError) Error() string {
	return fmt.Sprintf("oauth reconciliation failed: %s", e.Reason)
}
