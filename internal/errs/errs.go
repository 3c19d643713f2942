// Package errs defines the error taxonomy shared by the API layer and the
// memory engine. Handlers map each kind to an HTTP status; background tasks
// log and swallow everything.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrValidation marks malformed input. Surfaced as 400, never retried.
	ErrValidation = errors.New("validation error")

	// ErrAuth marks a missing, invalid or expired credential. Surfaced as 401.
	ErrAuth = errors.New("authentication error")

	// ErrForbidden marks a disabled account. Surfaced as 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks an unknown id. Surfaced as 404.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks an LLM or embedding transport failure. Surfaced as 500
	// on request paths, swallowed in background tasks.
	ErrUpstream = errors.New("upstream error")

	// ErrParse marks an LLM reply that could not be coerced to JSON.
	// Callers apply their documented defaults instead of failing.
	ErrParse = errors.New("parse error")

	// ErrStorage marks a failed transaction. Surfaced as 500 on request paths.
	ErrStorage = errors.New("storage error")
)

// Wrap attaches a kind to an underlying cause.
func Wrap(kind error, cause error, msg string) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %v", kind, msg, cause)
}

// Newf creates a kinded error with a formatted message.
func Newf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
