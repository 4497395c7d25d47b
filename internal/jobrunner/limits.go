package jobrunner

import "time"

// DefaultInterval is how often the runner's poller checks for due jobs.
const DefaultInterval = 30 * time.Second
