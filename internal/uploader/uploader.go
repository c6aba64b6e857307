package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/config"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/queue"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/log"
)

// Outcome summarizes one upload run. Err is the first error encountered; a
// run with Err still made forward progress for every batch before the
// failing one.
type Outcome struct {
	Delivered int   `json:"delivered"`
	Retried   int   `json:"retried"`
	Evicted   int   `json:"evicted"`
	Err       error `json:"-"`
}

// Uploader drives batched delivery against the collector. It holds no
// per-run state; Run may be invoked repeatedly (the scheduler guarantees one
// run in flight at a time).
type Uploader struct {
	store  *queue.Store
	client *http.Client
	probe  Probe
	cfg    func() config.Config
	logger log.Logger
}

// New builds an Uploader. cfg is re-read at the start of every run so
// reconfiguration applies to the next run. A nil client falls back to
// http.DefaultClient; a nil probe to AlwaysOnline.
func New(store *queue.Store, client *http.Client, probe Probe, cfg func() config.Config, logger log.Logger) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	if probe == nil {
		probe = AlwaysOnline{}
	}
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NewNullOutput()))
	}
	return &Uploader{store: store, client: client, probe: probe, cfg: cfg, logger: logger}
}

// Run executes one upload pass per the ordering rules in the package doc.
// It never panics or returns an error by any path other than Outcome.Err.
func (u *Uploader) Run(ctx context.Context) Outcome {
	var out Outcome
	cfg := u.cfg()

	snapshot := u.store.ReadAll()
	if len(snapshot) == 0 {
		return out
	}
	if cfg.ServerURL == "" {
		u.logger.Warn("upload skipped", log.Err(ErrNotConfigured))
		out.Err = ErrNotConfigured
		return out
	}
	if !u.probe.Online(ctx) {
		u.logger.Debug("upload skipped, device offline", log.Int("queued", len(snapshot)))
		return out
	}

	for start := 0; start < len(snapshot); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		batch := snapshot[start:end]

		wire, ids, unserializable := buildBatch(batch)
		for _, eid := range unserializable {
			u.logger.Warn("evicting undeliverable event", log.Err(&SerializationError{EventID: eid}))
		}
		if len(unserializable) > 0 {
			if err := u.store.RemoveByIDs(ctx, unserializable); err != nil {
				u.logger.Error("evicting unserializable events", log.Err(err))
				out.Err = err
				return out
			}
			out.Evicted += len(unserializable)
		}
		if len(wire) == 0 {
			continue
		}

		if err := u.send(ctx, cfg, wire); err != nil {
			retried, evicted, berr := u.store.BumpRetryOrEvict(ctx, ids)
			if berr != nil {
				u.logger.Error("retry bookkeeping failed", log.Err(berr))
			}
			out.Retried += retried
			out.Evicted += evicted
			out.Err = err
			u.logger.Warn("batch delivery failed",
				log.Int("events", len(ids)),
				log.Int("retried", retried),
				log.Int("evicted", evicted),
				log.Err(err))
			// Later batches stay untouched so the next run re-reads them in
			// their original order.
			return out
		}

		if err := u.store.RemoveByIDs(ctx, ids); err != nil {
			// The batch was accepted but the queue still holds it; the next
			// run re-delivers (at-least-once).
			u.logger.Error("removing delivered events", log.Err(err))
			out.Err = err
			return out
		}
		out.Delivered += len(ids)
		u.logger.Debug("batch delivered", log.Int("events", len(ids)))
	}
	return out
}

func (u *Uploader) send(ctx context.Context, cfg config.Config, events []wireEvent) error {
	body, err := json.Marshal(wireBatch{Events: events, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return &TransportError{Err: err}
	}

	var buf bytes.Buffer
	compressed := cfg.Compression
	if compressed {
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return &TransportError{Err: err}
		}
		if err := zw.Close(); err != nil {
			return &TransportError{Err: err}
		}
	} else {
		buf.Write(body)
	}

	rctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, cfg.ServerURL, &buf)
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	if compressed {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Status: resp.StatusCode}
	}
	return nil
}
