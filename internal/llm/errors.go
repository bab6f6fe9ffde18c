package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyCompletion is returned when a 2xx response carries no candidate text.
var ErrEmptyCompletion = errors.New("response has no completion content")

// ErrMalformedResponse is returned when a 2xx response body is not the expected JSON envelope.
var ErrMalformedResponse = errors.New("malformed provider response")

// StatusError reports a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Overloaded reports whether the provider asked us to slow down (503 or 429).
func (e *StatusError) Overloaded() bool {
	return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == http.StatusTooManyRequests
}

// IsOverloaded reports whether err wraps an overloaded StatusError.
func IsOverloaded(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Overloaded()
}
