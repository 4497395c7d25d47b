package orchestrator

import "time"

// Limits holds the orchestrator's bounds, per spec.md §4.8. The planner,
// replanner, and tool surface keep their own copies of the matching
// defaults; nothing here is passed to them, and MaxToolIterations is not
// read (toolsurface.MaxToolIterations caps the tool loop).
type Limits struct {
	MaxTotalSteps      int
	MaxReplans         int
	MaxExecutionTime   time.Duration
	MaxToolIterations  int
	SafetyIterationCap int
}

// DefaultLimits matches spec.md §4.8's documented constants exactly:
// maxTotalSteps=8, maxReplans=2, maxExecutionTimeMs=120000, maxToolIterations=10.
var DefaultLimits = Limits{
	MaxTotalSteps:      8,
	MaxReplans:         2,
	MaxExecutionTime:   120 * time.Second,
	MaxToolIterations:  10,
	SafetyIterationCap: 32,
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits
	if l.MaxTotalSteps == 0 {
		l.MaxTotalSteps = d.MaxTotalSteps
	}
	if l.MaxReplans == 0 {
		l.MaxReplans = d.MaxReplans
	}
	if l.MaxExecutionTime == 0 {
		l.MaxExecutionTime = d.MaxExecutionTime
	}
	if l.MaxToolIterations == 0 {
		l.MaxToolIterations = d.MaxToolIterations
	}
	if l.SafetyIterationCap == 0 {
		l.SafetyIterationCap = d.SafetyIterationCap
	}
	return l
}
