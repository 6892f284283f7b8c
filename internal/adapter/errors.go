package adapter

import (
	"errors"
	"fmt"

	"github.com/safetycheck/safetycheck/internal/schema"
)

// URLParseError means the input URL is malformed for the adapter that was
// asked to handle it. Input errors are never retried.
type URLParseError struct {
	URL    string
	Reason string
}

func (e *URLParseError) Error() string {
	return fmt.Sprintf("cannot parse url %q: %s", e.URL, e.Reason)
}

// ContentExtractionError means the content is gone, private or otherwise
// permanently unreachable. Not retried.
type ContentExtractionError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ContentExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot extract %q: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot extract %q: %s", e.URL, e.Reason)
}

func (e *ContentExtractionError) Unwrap() error { return e.Err }

// RateLimitError marks a transient, back-off-able failure: the platform is
// rate limiting us, temporarily unavailable, or timing out. The caller
// should retry with backoff.
type RateLimitError struct {
	Platform schema.Platform
	Err      error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: rate limited: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s: rate limited", e.Platform)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsURLParse reports whether err is a URLParseError.
func IsURLParse(err error) bool {
	var e *URLParseError
	return errors.As(err, &e)
}

// IsContentExtraction reports whether err is a ContentExtractionError.
func IsContentExtraction(err error) bool {
	var e *ContentExtractionError
	return errors.As(err, &e)
}

// IsRateLimit reports whether err is a RateLimitError. Rate-limit errors
// are the only adapter errors worth retrying.
func IsRateLimit(err error) bool {
	var e *RateLimitError
	return errors.As(err, &e)
}
