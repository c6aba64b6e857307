package uploader

import (
	"encoding/json"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/queue"
)

// wireEvent is the collector-facing shape of a queued event.
type wireEvent struct {
	ID         string          `json:"id"`
	Timestamp  int64           `json:"timestamp"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
}

// wireBatch is one upload request body.
type wireBatch struct {
	Events    []wireEvent `json:"events"`
	Timestamp int64       `json:"timestamp"`
}

// buildBatch converts queue events into their wire shape. Events whose
// payload is not valid JSON cannot be serialized and are returned separately
// so the caller can evict them without failing the batch.
func buildBatch(events []queue.Event) (wire []wireEvent, ids, unserializable []string) {
	wire = make([]wireEvent, 0, len(events))
	ids = make([]string, 0, len(events))
	for _, ev := range events {
		if !json.Valid(ev.Payload) {
			unserializable = append(unserializable, ev.ID)
			continue
		}
		wire = append(wire, wireEvent{
			ID:         ev.ID,
			Timestamp:  ev.EnqueuedAt,
			Type:       string(ev.Kind),
			Data:       ev.Payload,
			RetryCount: ev.RetryCount,
			MaxRetries: ev.MaxRetries,
		})
		ids = append(ids, ev.ID)
	}
	return wire, ids, unserializable
}
