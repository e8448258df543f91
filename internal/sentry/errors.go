package sentry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork wraps transport-level failures (connection refused, DNS,
// timeout). These are not retried; the caller decides.
var ErrNetwork = errors.New("sentry: network failure")

// UpstreamError carries a non-2xx status from the Sentry API, or a 2xx
// response whose body did not match the expected shape.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("sentry: upstream status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether a single retry is worthwhile: rate limits
// and server-side failures.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
