package skillregistry

// Limits bounds matching behavior for a Registry. Mirrors the
// Limits/withDefaults/DefaultLimits pattern used by planner, replanner,
// and orchestrator.
type Limits struct {
	// ConfidenceThreshold is the minimum matched/total MatchHints ratio a
	// skill must clear to be returned by MatchForMessage.
	ConfidenceThreshold float64
}

// DefaultLimits matches spec.md §4.3's documented confidence floor.
var DefaultLimits = Limits{ConfidenceThreshold: 0.3}

func (l Limits) withDefaults() Limits {
	if l.ConfidenceThreshold == 0 {
		l.ConfidenceThreshold = DefaultLimits.ConfidenceThreshold
	}
	return l
}
