package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pebblestore "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/storage/pebble"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() {
		// Some tests close the DB themselves to exercise reload; pebble
		// panics on double close, so tolerate it here.
		defer func() { _ = recover() }()
		_ = db.Close()
	})
	return db
}

func openTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	db := openTestDB(t, t.TempDir())
	s, err := Open(db, Options{Capacity: capacity})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func appendN(t *testing.T, s *Store, n, maxRetries int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		payload := []byte(fmt.Sprintf(`{"n":%d}`, i))
		eid, err := s.Append(ctx, KindCustom, payload, maxRetries)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ids = append(ids, eid)
	}
	return ids
}

func TestAppendAssignsFieldsAndPreservesOrder(t *testing.T) {
	s := openTestStore(t, 100)
	ids := appendN(t, s, 5, 3)

	events := s.ReadAll()
	if len(events) != 5 {
		t.Fatalf("want 5 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.ID != ids[i] {
			t.Fatalf("order broken at %d: want %s got %s", i, ids[i], ev.ID)
		}
		if ev.RetryCount != 0 || ev.MaxRetries != 3 {
			t.Fatalf("retry fields: %+v", ev)
		}
		if ev.EnqueuedAt == 0 {
			t.Fatalf("enqueuedAt not assigned")
		}
	}
}

func TestAppendRejectsInvalidKind(t *testing.T) {
	s := openTestStore(t, 10)
	if _, err := s.Append(context.Background(), Kind("bogus"), []byte(`{}`), 3); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("want ErrInvalidKind, got %v", err)
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	s := openTestStore(t, 1000)
	ids := appendN(t, s, 1050, 3)

	if s.Size() != 1000 {
		t.Fatalf("want size 1000, got %d", s.Size())
	}
	events := s.ReadAll()
	// the 50 oldest are gone, the newest 1000 remain in order
	for i, ev := range events {
		if ev.ID != ids[i+50] {
			t.Fatalf("eviction broke order at %d", i)
		}
	}
}

func TestRemoveByIDsExact(t *testing.T) {
	s := openTestStore(t, 100)
	ids := appendN(t, s, 6, 3)

	if err := s.RemoveByIDs(context.Background(), []string{ids[1], ids[4], "not-an-id"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	events := s.ReadAll()
	want := []string{ids[0], ids[2], ids[3], ids[5]}
	if len(events) != len(want) {
		t.Fatalf("want %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Fatalf("remaining order at %d: want %s got %s", i, want[i], ev.ID)
		}
	}
}

func TestBumpRetryOrEvict(t *testing.T) {
	s := openTestStore(t, 100)
	ids := appendN(t, s, 3, 2)
	ctx := context.Background()

	retried, evicted, err := s.BumpRetryOrEvict(ctx, ids)
	if err != nil {
		t.Fatalf("bump 1: %v", err)
	}
	if retried != 3 || evicted != 0 {
		t.Fatalf("bump 1: retried=%d evicted=%d", retried, evicted)
	}
	for _, ev := range s.ReadAll() {
		if ev.RetryCount != 1 {
			t.Fatalf("retryCount after bump 1: %d", ev.RetryCount)
		}
	}

	// second failure reaches maxRetries=2: removed in the same operation
	retried, evicted, err = s.BumpRetryOrEvict(ctx, ids)
	if err != nil {
		t.Fatalf("bump 2: %v", err)
	}
	if retried != 0 || evicted != 3 {
		t.Fatalf("bump 2: retried=%d evicted=%d", retried, evicted)
	}
	if s.Size() != 0 {
		t.Fatalf("events past maxRetries must not remain, size=%d", s.Size())
	}
}

func TestBumpEvictsImmediatelyWithZeroMaxRetries(t *testing.T) {
	s := openTestStore(t, 10)
	ids := appendN(t, s, 1, 0)
	_, evicted, err := s.BumpRetryOrEvict(context.Background(), ids)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if evicted != 1 || s.Size() != 0 {
		t.Fatalf("want immediate eviction, evicted=%d size=%d", evicted, s.Size())
	}
}

func TestOrderAndStateSurviveReload(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir)
	s, err := Open(db, Options{Capacity: 100})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ids := appendN(t, s, 4, 3)
	if _, _, err := s.BumpRetryOrEvict(context.Background(), ids[:2]); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openTestDB(t, dir)
	s2, err := Open(db2, Options{Capacity: 100})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	events := s2.ReadAll()
	if len(events) != 4 {
		t.Fatalf("want 4 events after reload, got %d", len(events))
	}
	for i, ev := range events {
		if ev.ID != ids[i] {
			t.Fatalf("order lost across reload at %d", i)
		}
	}
	if events[0].RetryCount != 1 || events[3].RetryCount != 0 {
		t.Fatalf("retry counts lost across reload: %d %d", events[0].RetryCount, events[3].RetryCount)
	}

	// sequence counter must not restart: new appends keep sorting after old
	more := appendN(t, s2, 1, 3)
	all := s2.ReadAll()
	if all[len(all)-1].ID != more[0] {
		t.Fatalf("new append must land at the back after reload")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := openTestStore(t, 100)
	appendN(t, s, 10, 3)
	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Size() != 0 {
		t.Fatalf("size after clear: %d", s.Size())
	}
	// queue stays usable
	appendN(t, s, 2, 3)
	if s.Size() != 2 {
		t.Fatalf("append after clear: %d", s.Size())
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	s := openTestStore(t, 2000)
	const workers = 8
	const perWorker = 50
	done := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < perWorker; i++ {
				if _, err := s.Append(context.Background(), KindNetwork, []byte(`{}`), 3); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}
	for w := 0; w < workers; w++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}
	if s.Size() != workers*perWorker {
		t.Fatalf("want %d events, got %d", workers*perWorker, s.Size())
	}
	seen := map[string]struct{}{}
	for _, ev := range s.ReadAll() {
		if _, dup := seen[ev.ID]; dup {
			t.Fatalf("duplicate id %s", ev.ID)
		}
		seen[ev.ID] = struct{}{}
	}
}
