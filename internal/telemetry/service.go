// Package telemetry exposes the management surface of the buffering core to
// the host: ingest, queue size, flush, clear, and reconfiguration. One
// Service instance owns the current configuration and fans operations out to
// the queue, the scheduler, and the ingest filter.
package telemetry

import (
	"context"
	"sync"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/config"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/filter"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/queue"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/scheduler"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/uploader"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/log"
)

// Service is the producer- and operator-facing facade over the buffering
// core. All methods are safe for concurrent use.
type Service struct {
	store  *queue.Store
	filter filter.Filter
	logger log.Logger

	mu    sync.RWMutex
	cfg   config.Config
	sched *scheduler.Scheduler
}

// New builds a Service. The scheduler is attached separately with Bind
// because it is constructed around an uploader that reads configuration
// through Service.Config.
func New(store *queue.Store, filt filter.Filter, cfg config.Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NewNullOutput()))
	}
	return &Service{store: store, filter: filt, cfg: cfg, logger: logger}
}

// Bind attaches the scheduler that upload triggers are routed through.
func (s *Service) Bind(sched *scheduler.Scheduler) {
	s.mu.Lock()
	s.sched = sched
	s.mu.Unlock()
}

// Config returns a snapshot of the current configuration.
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Ingest validates and queues one event, then nudges the scheduler. It never
// blocks on network activity. An event dropped by the ingest filter returns
// an empty id and no error. A storage failure is returned to the producer —
// the one point where an event can be lost before entering the queue.
func (s *Service) Ingest(ctx context.Context, kind queue.Kind, payload []byte) (string, error) {
	if !kind.Valid() {
		return "", queue.ErrInvalidKind
	}
	if !s.filter.Keep(string(kind), payload) {
		s.logger.Debug("event dropped by ingest filter", log.Str("kind", string(kind)))
		return "", nil
	}
	eid, err := s.store.Append(ctx, kind, payload, s.Config().MaxRetries)
	if err != nil {
		return "", err
	}
	if sched := s.scheduler(); sched != nil {
		sched.Notify()
	}
	return eid, nil
}

// QueueSize returns the number of buffered events.
func (s *Service) QueueSize() int { return s.store.Size() }

// Flush triggers an immediate upload run and blocks until it settles.
func (s *Service) Flush(ctx context.Context) uploader.Outcome {
	sched := s.scheduler()
	if sched == nil {
		return uploader.Outcome{}
	}
	return sched.Flush(ctx)
}

// Clear irreversibly drops all queued events, bypassing delivery.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// ConfigPatch carries optional configuration overrides. Nil fields keep
// their current values.
type ConfigPatch struct {
	ServerURL        *string `json:"serverUrl"`
	APIKey           *string `json:"apiKey"`
	BatchSize        *int    `json:"batchSize"`
	MaxRetries       *int    `json:"maxRetries"`
	UploadIntervalMs *int    `json:"uploadIntervalMs"`
	DebounceDelayMs  *int    `json:"debounceDelayMs"`
}

// Configure applies a patch to the live configuration. The new maxRetries
// only affects events enqueued afterwards; events already queued keep the
// limit snapshotted at their append. Returns without applying anything if
// the patched configuration fails validation.
func (s *Service) Configure(patch ConfigPatch) error {
	s.mu.Lock()
	next := s.cfg
	if patch.ServerURL != nil {
		next.ServerURL = *patch.ServerURL
	}
	if patch.APIKey != nil {
		next.APIKey = *patch.APIKey
	}
	if patch.BatchSize != nil {
		next.BatchSize = *patch.BatchSize
	}
	if patch.MaxRetries != nil {
		next.MaxRetries = *patch.MaxRetries
	}
	if patch.UploadIntervalMs != nil {
		next.UploadIntervalMs = *patch.UploadIntervalMs
	}
	if patch.DebounceDelayMs != nil {
		next.DebounceDelayMs = *patch.DebounceDelayMs
	}
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	timersChanged := next.UploadIntervalMs != s.cfg.UploadIntervalMs ||
		next.DebounceDelayMs != s.cfg.DebounceDelayMs
	s.cfg = next
	sched := s.sched
	s.mu.Unlock()

	if timersChanged && sched != nil {
		sched.SetIntervals(next.DebounceDelay(), next.UploadInterval())
	}
	return nil
}

func (s *Service) scheduler() *scheduler.Scheduler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sched
}
