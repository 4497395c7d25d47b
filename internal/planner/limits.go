package planner

// Limits bounds a single Plan call. These mirror orchestrator.Limits'
// maxTotalSteps field — the orchestrator owns the single source of truth
// for the full constant set (spec.md §4.8); the planner only needs the
// step cap to truncate its own output.
type Limits struct {
	MaxTotalSteps int
}

// DefaultLimits matches spec.md §4.8's documented constants.
var DefaultLimits = Limits{MaxTotalSteps: 8}

func (l Limits) withDefaults() Limits {
	if l.MaxTotalSteps == 0 {
		l.MaxTotalSteps = DefaultLimits.MaxTotalSteps
	}
	return l
}
