package transport

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is wrapped by every RateLimitError.
var ErrRateLimited = errors.New("rate limited")

// RateLimitError is returned when the provider keeps answering 429 after all retries.
type RateLimitError struct {
	URL        string
	Retries    int
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("rate limit exceeded after %d retries: %s", e.Retries, e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// StatusError is returned for any non-200 response that is not retried or exhausted its retries.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	if errors.Is(err, ErrRateLimited) {
		return 429
	}

	return 0
}
