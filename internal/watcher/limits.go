package watcher

import "time"

// DefaultInterval is how often the watcher's poller checks for new inbound items.
const DefaultInterval = 2 * time.Minute

// DefaultMaxNotificationsPerHour is the per-user throttle cap, per spec.md §4.12.
const DefaultMaxNotificationsPerHour = 3
