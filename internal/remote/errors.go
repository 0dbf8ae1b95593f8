// Package remote is the thin gateway to the backing row store. It exposes,
// per entity kind, an incremental fetch since a watermark, an idempotent
// upsert by id, and a tombstone upsert — with fail-fast, result-style
// error semantics. Errors classify into transport failures (retried on the
// next scheduled sync pass) and terminal authentication failures (surfaced
// and not retried).
package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, remote.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("remote: bad request")
	ErrUnauthorized = errors.New("remote: unauthorized")
	ErrForbidden    = errors.New("remote: forbidden")
	ErrNotFound     = errors.New("remote: not found")
	ErrThrottled    = errors.New("remote: throttled")
	ErrServerError  = errors.New("remote: server error")

	// ErrNoSession is returned by a TokenSource when there is no current
	// user session. Like ErrUnauthorized it is terminal.
	ErrNoSession = errors.New("remote: no active session")
)

// StoreError wraps a sentinel error with the HTTP status code and the
// response body message for debugging.
type StoreError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("remote: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// IsTerminal reports whether err is an authentication failure that must be
// surfaced rather than retried. Callers must not re-queue work behind a
// terminal error — the sync engine stops the pass and waits for a new
// session.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNoSession)
}
