// Package apperr defines the error taxonomy shared across the application.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid name")
	ErrNotConfigured = errors.New("not configured")
	ErrAuth          = errors.New("authentication failed")
	ErrParse         = errors.New("unexpected response shape")
	ErrEmptyResult   = errors.New("provider returned no results")
	ErrRateLimited   = errors.New("rate limited")
	ErrCorruptStore  = errors.New("corrupt settings store")
)

// UpstreamError is a non-2xx response from a provider. The body is kept
// verbatim for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Upstream returns the UpstreamError wrapped inside err, or nil.
func Upstream(err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}
