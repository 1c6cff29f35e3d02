package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Error kinds, matching the classification used for remote sync errors.
const (
	KindTransient = "transient"
	KindRejected  = "rejected"
)

// RateLimitError is a 429 from the vendor.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error     { return e.Err }
func (e *RateLimitError) ErrorKind() string { return KindTransient }

// InvalidResponseError means the completion did not match the schema.
type InvalidResponseError struct {
	Content json.RawMessage
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error     { return e.Err }
func (e *InvalidResponseError) ErrorKind() string { return KindTransient }

// UnavailableError means the vendor could not be reached or failed.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "LLM provider unavailable"
	}
	return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error     { return e.Err }
func (e *UnavailableError) ErrorKind() string { return KindTransient }

// TruncatedError means generation stopped at MaxTokens.
type TruncatedError struct {
	Content json.RawMessage
}

func (e *TruncatedError) Error() string     { return "LLM response truncated: max tokens exceeded" }
func (e *TruncatedError) ErrorKind() string { return KindRejected }

// ErrorKind returns the classification of err. Unclassified errors are
// treated as transient.
func ErrorKind(err error) string {
	var c interface{ ErrorKind() string }
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	return KindTransient
}
