package clock

import (
	"sync"
	"time"
)

// Fake is a Clock whose time only moves when Advance is called. Timers and
// tickers created from it fire synchronously inside Advance, which makes
// debounce/interval logic deterministic in tests.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

// NewFake creates a fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

type fakeWaiter struct {
	clk    *Fake
	when   time.Time
	period time.Duration // 0 for one-shot timers
	ch     chan time.Time
	active bool
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTimer creates a one-shot timer firing after d of virtual time.
func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{clk: f, when: f.now.Add(d), ch: make(chan time.Time, 1), active: true}
	f.waiters = append(f.waiters, w)
	return &fakeTimer{w}
}

// NewTicker creates a ticker firing every d of virtual time.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{clk: f, when: f.now.Add(d), period: d, ch: make(chan time.Time, 1), active: true}
	f.waiters = append(f.waiters, w)
	return &fakeTicker{w}
}

// Advance moves virtual time forward by d, firing every timer and ticker that
// becomes due, in due order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		var next *fakeWaiter
		for _, w := range f.waiters {
			if !w.active || w.when.After(target) {
				continue
			}
			if next == nil || w.when.Before(next.when) {
				next = w
			}
		}
		if next == nil {
			break
		}
		f.now = next.when
		select {
		case next.ch <- next.when:
		default:
		}
		if next.period > 0 {
			next.when = next.when.Add(next.period)
		} else {
			next.active = false
		}
	}
	f.now = target
	f.mu.Unlock()
}

func (w *fakeWaiter) reset(d time.Duration) bool {
	w.clk.mu.Lock()
	defer w.clk.mu.Unlock()
	wasActive := w.active
	w.when = w.clk.now.Add(d)
	if w.period > 0 {
		w.period = d
	}
	w.active = true
	// drop a stale undelivered fire
	select {
	case <-w.ch:
	default:
	}
	return wasActive
}

func (w *fakeWaiter) stop() bool {
	w.clk.mu.Lock()
	defer w.clk.mu.Unlock()
	wasActive := w.active
	w.active = false
	return wasActive
}

type fakeTimer struct{ w *fakeWaiter }

func (t *fakeTimer) C() <-chan time.Time        { return t.w.ch }
func (t *fakeTimer) Reset(d time.Duration) bool { return t.w.reset(d) }
func (t *fakeTimer) Stop() bool                 { return t.w.stop() }

type fakeTicker struct{ w *fakeWaiter }

func (t *fakeTicker) C() <-chan time.Time   { return t.w.ch }
func (t *fakeTicker) Reset(d time.Duration) { t.w.reset(d) }
func (t *fakeTicker) Stop()                 { t.w.stop() }
