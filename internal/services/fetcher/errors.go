package fetcher

import (
	"fmt"
	"time"
)

// Retry-after hints attached to fetch errors. The retry chain treats
// these as a floor on the computed backoff wait.
const (
	retryAfterClientError   = 2 * time.Second
	retryAfterServerError   = 10 * time.Second
	retryAfterTransport     = 5 * time.Second
	retryAfterRedirectTrap  = 100 * time.Millisecond
	retryAfterBrowserBroken = 5 * time.Second
)

// smallBodyThreshold is the body size below which a redirected response
// is treated as a bot wall or consent interstitial rather than content.
const smallBodyThreshold = 500

// FetchError is a retryable fetch failure. RetryAfter carries the
// server-informed (or taxonomy-derived) minimum wait before the next
// attempt. Errors that are not *FetchError pass through the retry
// chain untouched.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     string
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// newStatusError maps an HTTP status >= 400 to a retryable error with
// the taxonomy wait: 4xx responses are usually throttles or bot walls
// that clear quickly, 5xx responses mean the origin needs longer.
func newStatusError(url string, status int) *FetchError {
	retryAfter := retryAfterClientError
	reason := "client error"
	if status >= 500 {
		retryAfter = retryAfterServerError
		reason = "server error"
	}
	return &FetchError{
		URL:        url,
		StatusCode: status,
		Reason:     reason,
		RetryAfter: retryAfter,
	}
}

// newTransportError wraps a connection-level failure (DNS, TLS, reset).
func newTransportError(url string, err error) *FetchError {
	return &FetchError{
		URL:        url,
		Reason:     "transport error",
		RetryAfter: retryAfterTransport,
		Err:        err,
	}
}

// newRedirectTrapError marks a redirect that landed on a near-empty
// page. The short hint lets the fallback tier take over almost
// immediately instead of burning the full backoff.
func newRedirectTrapError(url, finalURL string, bodyLen int) *FetchError {
	return &FetchError{
		URL:        url,
		Reason:     fmt.Sprintf("redirect to small body (%d bytes at %s)", bodyLen, finalURL),
		RetryAfter: retryAfterRedirectTrap,
	}
}
