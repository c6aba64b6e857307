package queue

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/retry"
	pebblestore "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/storage/pebble"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/clock"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/id"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/log"
)

// Options configures a Store.
type Options struct {
	// Capacity bounds the queue. Zero means the default of 1000.
	Capacity int
	// Clock stamps EnqueuedAt. Nil means the real clock.
	Clock clock.Clock
	// Logger is optional; nil discards.
	Logger log.Logger
}

// Store is the durable, ordered, capacity-bounded event queue. All mutations
// serialize behind one mutex and commit a Pebble batch before the in-memory
// mirror is touched, so concurrent producers and the upload run observe
// linearizable append/remove/bump operations.
type Store struct {
	db       *pebblestore.DB
	capacity int
	clk      clock.Clock
	logger   log.Logger
	gen      *id.Generator

	mu      sync.Mutex
	lastSeq uint64
	events  []*Event
	seqByID map[string]uint64
}

// Open loads the persisted queue from db. Records that fail checksum or
// decode are skipped with a warning; they cannot be delivered.
func Open(db *pebblestore.DB, opts Options) (*Store, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = 1000
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewLogger(log.WithOutput(log.NewNullOutput()))
	}
	s := &Store{
		db:       db,
		capacity: opts.Capacity,
		clk:      opts.Clock,
		logger:   opts.Logger,
		gen:      id.NewGenerator(),
		seqByID:  map[string]uint64{},
	}

	if meta, err := db.Get(keyMeta); err == nil && len(meta) >= 8 {
		s.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}

	lo, hi := entryBounds()
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		seq := binary.BigEndian.Uint64(iter.Key()[len(entryPrefix):])
		ev, err := decodeRecord(iter.Value())
		if err != nil {
			s.logger.Warn("skipping unreadable event record",
				log.Int64("seq", int64(seq)), log.Err(err))
			continue
		}
		s.events = append(s.events, ev)
		s.seqByID[ev.ID] = seq
		if seq > s.lastSeq {
			s.lastSeq = seq
		}
	}
	return s, nil
}

// Append persists a new event and returns its id. When the append would
// exceed capacity, the oldest events are dropped in the same batch, so the
// newest `capacity` events are always retained. Safe for concurrent use.
func (s *Store) Append(ctx context.Context, kind Kind, payload []byte, maxRetries int) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidKind, string(kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev := &Event{
		ID:         s.gen.Next().String(),
		EnqueuedAt: s.clk.Now().UnixMilli(),
		Kind:       kind,
		Payload:    append([]byte(nil), payload...),
		MaxRetries: maxRetries,
	}
	rec, err := encodeRecord(ev)
	if err != nil {
		return "", &StorageError{Op: "append", Err: err}
	}

	seq := s.lastSeq + 1
	overflow := len(s.events) + 1 - s.capacity
	if overflow < 0 {
		overflow = 0
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyEntry(seq), rec, nil); err != nil {
		return "", &StorageError{Op: "append", Err: err}
	}
	for i := 0; i < overflow; i++ {
		old := s.events[i]
		if err := b.Delete(keyEntry(s.seqByID[old.ID]), nil); err != nil {
			return "", &StorageError{Op: "append", Err: err}
		}
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(keyMeta, meta[:], nil); err != nil {
		return "", &StorageError{Op: "append", Err: err}
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return "", &StorageError{Op: "append", Err: err}
	}

	for i := 0; i < overflow; i++ {
		delete(s.seqByID, s.events[i].ID)
	}
	s.events = append(s.events[overflow:len(s.events):len(s.events)], ev)
	s.seqByID[ev.ID] = seq
	s.lastSeq = seq
	if overflow > 0 {
		s.logger.Debug("capacity eviction", log.Int("dropped", overflow))
	}
	return ev.ID, nil
}

// ReadAll returns a snapshot of the queue in enqueue order.
func (s *Store) ReadAll() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	for i, ev := range s.events {
		out[i] = *ev
	}
	return out
}

// RemoveByIDs removes exactly the named events, preserving the order of the
// rest. Unknown ids are ignored. Atomic relative to Append and the retry
// bookkeeping.
func (s *Store) RemoveByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	victims := map[string]struct{}{}
	b := s.db.NewBatch()
	defer b.Close()
	for _, eid := range ids {
		seq, ok := s.seqByID[eid]
		if !ok {
			continue
		}
		if err := b.Delete(keyEntry(seq), nil); err != nil {
			return &StorageError{Op: "remove", Err: err}
		}
		victims[eid] = struct{}{}
	}
	if len(victims) == 0 {
		return nil
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return &StorageError{Op: "remove", Err: err}
	}

	s.dropLocked(victims)
	return nil
}

// BumpRetryOrEvict increments retryCount for each named event; an event whose
// incremented count reaches its snapshotted maxRetries is removed in the same
// operation. Returns how many events were retained for retry and how many
// were evicted.
func (s *Store) BumpRetryOrEvict(ctx context.Context, ids []string) (retried, evicted int, err error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	victims := map[string]struct{}{}
	bumped := map[string]struct{}{}
	b := s.db.NewBatch()
	defer b.Close()
	for _, eid := range ids {
		seq, ok := s.seqByID[eid]
		if !ok {
			continue
		}
		ev := s.eventLocked(eid)
		next := ev.RetryCount + 1
		if retry.ShouldEvict(next, ev.MaxRetries) {
			if err := b.Delete(keyEntry(seq), nil); err != nil {
				return 0, 0, &StorageError{Op: "bump", Err: err}
			}
			victims[eid] = struct{}{}
			continue
		}
		updated := *ev
		updated.RetryCount = next
		rec, err := encodeRecord(&updated)
		if err != nil {
			return 0, 0, &StorageError{Op: "bump", Err: err}
		}
		if err := b.Set(keyEntry(seq), rec, nil); err != nil {
			return 0, 0, &StorageError{Op: "bump", Err: err}
		}
		bumped[eid] = struct{}{}
	}
	if len(victims) == 0 && len(bumped) == 0 {
		return 0, 0, nil
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return 0, 0, &StorageError{Op: "bump", Err: err}
	}

	for _, ev := range s.events {
		if _, ok := bumped[ev.ID]; ok {
			ev.RetryCount++
		}
	}
	s.dropLocked(victims)
	return len(bumped), len(victims), nil
}

// Size returns the number of queued events.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Clear removes all events unconditionally. The sequence counter is retained
// so ids stay unique across the queue's lifetime.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := entryBounds()
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(lo, hi, nil); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}

	s.events = nil
	s.seqByID = map[string]uint64{}
	return nil
}

// eventLocked returns the queued event for id; the caller holds s.mu and has
// verified presence via seqByID.
func (s *Store) eventLocked(eid string) *Event {
	for _, ev := range s.events {
		if ev.ID == eid {
			return ev
		}
	}
	return nil
}

// dropLocked removes the named events from the in-memory mirror, preserving
// the order of the rest.
func (s *Store) dropLocked(victims map[string]struct{}) {
	if len(victims) == 0 {
		return
	}
	kept := s.events[:0]
	for _, ev := range s.events {
		if _, ok := victims[ev.ID]; ok {
			delete(s.seqByID, ev.ID)
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
}

