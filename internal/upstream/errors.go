package upstream

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// before any network traffic happens.
var ErrCircuitOpen = errors.New("upstream circuit open")

// NetworkError is a transport-level failure: connection error or a non-2xx
// status that isn't a 404.
type NetworkError struct {
	Op         string // endpoint shorthand, e.g. "trade-summary"
	StatusCode int    // 0 when the request never completed
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a payload-level failure: the upstream envelope arrived intact
// but flagged the request as unsuccessful.
type APIError struct {
	Op  string
	Msg string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: upstream rejected request: %s", e.Op, e.Msg)
}

// NotFoundError means the requested item has no backing data upstream.
// Surfaced to the user as a distinct state, never silently retried.
type NotFoundError struct {
	Item string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %q not found upstream", e.Item)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
