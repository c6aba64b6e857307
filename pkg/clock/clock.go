// Package clock abstracts wall-clock time and timers so timer-driven
// components can be tested by advancing virtual time deterministically.
package clock

import "time"

// Timer fires once on C after its duration elapses, unless reset or stopped.
type Timer interface {
	// C delivers the firing time. A timer fires at most once per Reset.
	C() <-chan time.Time
	// Reset re-arms the timer for d. It reports whether the timer was active.
	Reset(d time.Duration) bool
	// Stop disarms the timer. It reports whether the timer was active.
	Stop() bool
}

// Ticker fires repeatedly on C at its interval until stopped.
type Ticker interface {
	C() <-chan time.Time
	// Reset changes the interval, restarting the period.
	Reset(d time.Duration)
	Stop()
}

// Clock produces the current time and timer primitives.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
	NewTicker(d time.Duration) Ticker
}

// New returns the real clock backed by the time package.
func New() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return &realTimer{t: time.NewTimer(d)} }

func (realClock) NewTicker(d time.Duration) Ticker { return &realTicker{t: time.NewTicker(d)} }

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time   { return r.t.C }
func (r *realTicker) Reset(d time.Duration) { r.t.Reset(d) }
func (r *realTicker) Stop()                 { r.t.Stop() }
