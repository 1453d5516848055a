package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoData signals a well-formed response without a result table: the code
// has no catalog entry. It is expected for most codes and never retried.
var ErrNoData = errors.New("no record found")

// TransportError reports a request that kept failing after every allowed attempt.
type TransportError struct {
	Code     string
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request for %s failed after %d attempts: %v", e.Code, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a response whose status code is outside 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ParseError reports a result table that is present but structurally unexpected.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "malformed result table: " + e.Reason
}
