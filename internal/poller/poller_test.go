package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoller_RunsImmediatelyOnStart(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{}, 1)
	p := New(func(ctx context.Context) {
		calls.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
	}, time.Hour, nil)

	p.Start(context.Background())
	defer p.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate first tick")
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 call so far, got %d", calls.Load())
	}
}

func TestPoller_StartIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	p := New(func(ctx context.Context) { calls.Add(1) }, time.Hour, nil)

	p.Start(context.Background())
	p.Start(context.Background())
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("expected only the first Start to take effect, got %d calls", calls.Load())
	}
}

func TestPoller_SkipsOverlappingTicks(t *testing.T) {
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32
	release := make(chan struct{})

	p := New(func(ctx context.Context) {
		n := concurrent.Add(1)
		for {
			old := maxConcurrent.Load()
			if n <= old || maxConcurrent.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		concurrent.Add(-1)
	}, 5*time.Millisecond, nil)

	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	close(release)
	p.Stop()

	if maxConcurrent.Load() != 1 {
		t.Errorf("expected no overlapping invocations, saw max concurrency %d", maxConcurrent.Load())
	}
}

func TestPoller_StopAwaitsInFlightWork(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	p := New(func(ctx context.Context) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	}, time.Hour, nil)

	p.Start(context.Background())
	<-started
	p.Stop()

	if !finished.Load() {
		t.Error("expected Stop to block until the in-flight tick finished")
	}
}

func TestPoller_StopStartStopTerminatesCleanly(t *testing.T) {
	p := New(func(ctx context.Context) {}, time.Hour, nil)

	p.Stop() // never started
	p.Start(context.Background())
	if !p.IsRunning() {
		t.Fatal("expected running after Start")
	}
	p.Stop()
	if p.IsRunning() {
		t.Fatal("expected not running after Stop")
	}
	p.Stop() // already stopped
}

func TestPoller_RecoversPanicAndKeepsTicking(t *testing.T) {
	var calls atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	p := New(func(ctx context.Context) {
		n := calls.Add(1)
		if n <= 2 {
			wg.Done()
		}
		panic("boom")
	}, 5*time.Millisecond, nil)

	p.Start(context.Background())
	defer p.Stop()

	waitOrTimeout(t, &wg, time.Second)
	if calls.Load() < 2 {
		t.Errorf("expected the poller to keep ticking after a panic, got %d calls", calls.Load())
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for ticks")
	}
}
