package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the server's reply does not match the
// chat response contract.
var ErrMalformedResponse = errors.New("malformed chat response")

// TransportError is returned when the server answers with a non-success status.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Body)
}
