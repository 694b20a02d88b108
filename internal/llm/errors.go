package llm

import (
	"errors"
	"fmt"
)

// Failure modes of the text generation backend. Each is distinguishable so
// callers can tell a network failure from a protocol one.
var (
	// ErrUnexpectedSchema means the response body did not match the
	// chat-completions shape.
	ErrUnexpectedSchema = errors.New("unexpected chat completion response schema")

	// ErrEmptyContent means the backend returned an empty or
	// all-whitespace content string.
	ErrEmptyContent = errors.New("empty content from text generation backend")
)

// TransportError wraps a network-level failure (connection, TLS, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat completion request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response, carrying the status code and a
// truncated copy of the body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completion error %d: %s", e.StatusCode, e.Body)
}
