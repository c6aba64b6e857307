package queue

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a telemetry event.
type Kind string

// Event kinds accepted by the queue.
const (
	KindCrash       Kind = "crash"
	KindPerformance Kind = "performance"
	KindNetwork     Kind = "network"
	KindSession     Kind = "session"
	KindCustom      Kind = "custom"
)

// Valid reports whether k is one of the accepted kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCrash, KindPerformance, KindNetwork, KindSession, KindCustom:
		return true
	}
	return false
}

// ParseKind converts a wire string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("queue: unknown event kind %q", s)
	}
	return k, nil
}

// Event is one buffered telemetry record. The queue owns all instances;
// producers keep no reference after Append.
type Event struct {
	// ID is unique for the lifetime of the queue, assigned at append time.
	ID string `cbor:"id"`
	// EnqueuedAt is the append time in epoch milliseconds.
	EnqueuedAt int64 `cbor:"enqueuedAt"`
	// Kind classifies the event.
	Kind Kind `cbor:"kind"`
	// Payload is opaque producer data; the queue never interprets it.
	Payload json.RawMessage `cbor:"payload"`
	// RetryCount is the number of failed delivery attempts so far.
	RetryCount int `cbor:"retryCount"`
	// MaxRetries is the retry limit snapshotted at enqueue time, so later
	// reconfiguration does not retroactively affect queued events.
	MaxRetries int `cbor:"maxRetries"`
}
