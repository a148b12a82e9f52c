package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the fetch pipeline. Adapter and source level failures
// are converted into one of these, logged, and swallowed at the batch
// boundary; only a total failure with no usable cache surfaces to clients.
var (
	// ErrSourceNotFound marks a dead account or channel (HTTP 400/404 on an
	// account-style lookup). Reported for registry maintenance, not retried.
	ErrSourceNotFound = errors.New("source not found")

	// ErrTransientFetch marks a timeout, 429, or 5xx. Partial results
	// accumulated before the failure are kept.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrParse marks a malformed feed or response body. The source yields
	// zero items; the batch continues.
	ErrParse = errors.New("parse error")

	// ErrCacheUnavailable marks an unreachable persistent cache tier. The
	// pipeline falls back to the in-process tier only.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// SourceError wraps a pipeline error with the source it came from.
type SourceError struct {
	SourceID string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.SourceID, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError attaches a source id to err.
func NewSourceError(sourceID string, err error) *SourceError {
	return &SourceError{SourceID: sourceID, Err: err}
}

// IsNotFound reports whether err marks a dead source.
func IsNotFound(err error) bool { return errors.Is(err, ErrSourceNotFound) }

// IsTransient reports whether err is a retry-class failure. Context
// deadline expiry takes the same partial-data path as a 429/5xx.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFetch) || errors.Is(err, context.DeadlineExceeded)
}

// ClassifyStatus maps an HTTP status from a platform call onto the error
// taxonomy. Returns nil for success statuses.
func ClassifyStatus(status int) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusNotFound, status == http.StatusBadRequest:
		return fmt.Errorf("%w: status %d", ErrSourceNotFound, status)
	case status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: status %d", ErrTransientFetch, status)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrTransientFetch, status)
	}
}
