package uploader

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is reported when a run finds no collector URL configured.
// The queue is left untouched.
var ErrNotConfigured = errors.New("uploader: no server url configured")

// TransportError reports that a batch request never produced an HTTP
// response: dial failure, TLS/DNS trouble, or a timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("uploader: transport: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx collector response; the whole batch is
// considered failed.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("uploader: server returned status %d", e.Status)
}

// SerializationError reports an event payload that cannot be encoded for the
// wire. The event is evicted; it can never be delivered.
type SerializationError struct {
	EventID string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("uploader: event %s payload is not serializable", e.EventID)
}
