package watcher

import (
	"sync"
	"time"

	"github.com/adiaconou/hermes/internal/core"
)

// throttleTracker holds one core.WatcherThrottleState per user in memory,
// resetting each user's window once an hour has elapsed since it opened.
type throttleTracker struct {
	mu     sync.Mutex
	states map[string]*core.WatcherThrottleState
	max    int
}

func newThrottleTracker(max int) *throttleTracker {
	if max <= 0 {
		max = DefaultMaxNotificationsPerHour
	}
	return &throttleTracker{states: make(map[string]*core.WatcherThrottleState), max: max}
}

// allow reports whether userID may receive one more notification right
// now, and if so records it against the current window.
func (t *throttleTracker) allow(userID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[userID]
	if !ok || now.Sub(s.WindowStart) >= core.WatcherWindow {
		s = &core.WatcherThrottleState{WindowStart: now}
		t.states[userID] = s
	}
	if s.Count >= t.max {
		return false
	}
	s.Count++
	return true
}
