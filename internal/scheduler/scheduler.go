// Package scheduler decides when upload runs execute.
//
// A single goroutine owns every trigger — debounced append notifications, the
// periodic interval, and manual flushes — and executes runs inline, which
// makes the single-flight guarantee structural: there is no second execution
// path that could start a concurrent run. Timers come from an injected clock
// so tests drive the schedule with virtual time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/uploader"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/clock"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/log"
)

// Runner executes one upload pass. Implemented by *uploader.Uploader.
type Runner interface {
	Run(ctx context.Context) uploader.Outcome
}

// Options configures a Scheduler.
type Options struct {
	// Debounce is the quiet period after the last Notify before a run starts.
	Debounce time.Duration
	// Interval triggers a run periodically regardless of recent activity.
	Interval time.Duration
	// Clock is optional; nil means the real clock.
	Clock clock.Clock
	// Logger is optional; nil discards.
	Logger log.Logger
}

type intervals struct {
	debounce time.Duration
	interval time.Duration
}

type flushReq struct {
	done chan uploader.Outcome
}

// Scheduler coalesces triggers into sequential upload runs.
type Scheduler struct {
	runner Runner
	clk    clock.Clock
	logger log.Logger

	notifyCh chan struct{}
	flushCh  chan flushReq
	confCh   chan intervals

	initial intervals

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds a Scheduler driving runner.
func New(runner Runner, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewLogger(log.WithOutput(log.NewNullOutput()))
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	return &Scheduler{
		runner:   runner,
		clk:      opts.Clock,
		logger:   opts.Logger,
		notifyCh: make(chan struct{}, 1),
		flushCh:  make(chan flushReq),
		confCh:   make(chan intervals, 1),
		initial:  intervals{debounce: opts.Debounce, interval: opts.Interval},
		done:     make(chan struct{}),
	}
}

// Start launches the scheduling loop. Subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		lctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		go s.loop(lctx)
	})
}

// Stop cancels pending timers and joins the loop. A run already in flight
// finishes normally before the loop exits.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		} else {
			close(s.done)
		}
	})
}

// Notify records that an event was appended. It never blocks; bursts coalesce
// into a single debounced run.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Flush requests an immediate run and blocks until it settles. If a run is
// already in flight, the request waits for it to finish rather than running
// in parallel.
func (s *Scheduler) Flush(ctx context.Context) uploader.Outcome {
	req := flushReq{done: make(chan uploader.Outcome, 1)}
	select {
	case s.flushCh <- req:
	case <-s.done:
		return uploader.Outcome{}
	case <-ctx.Done():
		return uploader.Outcome{Err: ctx.Err()}
	}
	select {
	case out := <-req.done:
		return out
	case <-ctx.Done():
		return uploader.Outcome{Err: ctx.Err()}
	}
}

// SetIntervals applies new debounce/interval values to the running loop. The
// periodic timer restarts with the new interval.
func (s *Scheduler) SetIntervals(debounce, interval time.Duration) {
	iv := intervals{debounce: debounce, interval: interval}
	for {
		select {
		case s.confCh <- iv:
			return
		default:
		}
		// drop a stale pending update, then retry
		select {
		case <-s.confCh:
		default:
		}
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	cur := s.initial
	ticker := s.clk.NewTicker(cur.interval)
	defer ticker.Stop()
	debounce := s.clk.NewTimer(cur.debounce)
	debounce.Stop()
	defer debounce.Stop()

	runOnce := func(done chan uploader.Outcome) {
		// A shutdown mid-run must not abort batches already dispatched.
		out := s.runner.Run(context.WithoutCancel(ctx))
		// The run consumed the queue snapshot; a pending debounce would only
		// re-run on the same state.
		debounce.Stop()
		if done != nil {
			done <- out
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case iv := <-s.confCh:
			cur = iv
			ticker.Reset(cur.interval)
		case <-s.notifyCh:
			debounce.Reset(cur.debounce)
		case <-debounce.C():
			runOnce(nil)
		case <-ticker.C():
			runOnce(nil)
		case req := <-s.flushCh:
			runOnce(req.done)
		}
	}
}
