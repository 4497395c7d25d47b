// Package poller implements a generic, re-entrant, non-overlapping
// interval timer, generalizing the teacher's Scheduler.Start ticker loop
// (already overlap-free by construction, since it only issues one tick at
// a time) into the explicit start/stop/isRunning contract spec.md §4.10
// requires for sharing between the job runner and the watcher.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adiaconou/hermes/internal/core"
)

// Poller fires fn every interval, skipping a tick if the previous
// invocation of fn is still running.
type Poller struct {
	fn       func(ctx context.Context)
	interval time.Duration
	logger   core.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	busy     atomic.Bool
}

// New returns a Poller bound to fn, firing every interval. logger may be
// nil, in which case panics/errors recovered from fn are silently dropped
// via core.NopLogger.
func New(fn func(ctx context.Context), interval time.Duration, logger core.Logger) *Poller {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Poller{fn: fn, interval: interval, logger: logger}
}

// Start is idempotent: the first call runs fn immediately then every
// interval; subsequent calls while already running are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.loopDone = make(chan struct{})
	p.running = true

	go p.loop(loopCtx)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.loopDone)

	p.runTick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runTick(ctx)
		}
	}
}

// runTick skips this tick entirely if the previous call to fn is still in
// flight, and recovers any panic from fn so a single bad tick never kills
// the poller.
func (p *Poller) runTick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("poller: recovered panic in tick: %v", r)
		}
	}()
	p.fn(ctx)
}

// Stop halts future ticks and blocks until any in-flight fn call settles.
// Calling Stop on a Poller that was never started, or already stopped, is
// a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.loopDone
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the poller's loop goroutine is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
