package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the targeted remote row does not exist.
var ErrNotFound = errors.New("remote row not found")

// Error kinds reported by ErrorKind.
const (
	KindTransient = "transient"
	KindRejected  = "rejected"
)

// ErrorClassifier lets an error declare whether retrying can help.
type ErrorClassifier interface {
	ErrorKind() string
}

// StatusError is a non-2xx response from the REST endpoint.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ErrorKind classifies 408, 429 and 5xx as transient; everything else is
// a rejection that will keep failing until the data or schema changes.
func (e *StatusError) ErrorKind() string {
	switch {
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= 500:
		return KindTransient
	default:
		return KindRejected
	}
}

// Kind returns the ErrorKind of err, or KindTransient for errors that do
// not classify themselves (network failures, timeouts).
func Kind(err error) string {
	var c ErrorClassifier
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	return KindTransient
}
