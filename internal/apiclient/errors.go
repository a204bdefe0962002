package apiclient

import (
	"fmt"
	"net/http"
)

// TransportError reports a request that did not produce a usable envelope:
// network failures, timeouts, non-2xx responses without an envelope error and
// undecodable bodies.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int // zero when no response was received
	Err        error

	timeout bool
}

func (e *TransportError) Error() string {
	switch {
	case e.timeout:
		return fmt.Sprintf("%s %s: request timed out: %v", e.Method, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %d %s: %v", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request exceeded the client timeout.
func (e *TransportError) Timeout() bool {
	return e.timeout
}

// ApplicationError reports an envelope whose error field was set.
type ApplicationError struct {
	Message    string
	StatusCode int
}

func (e *ApplicationError) Error() string {
	return e.Message
}
