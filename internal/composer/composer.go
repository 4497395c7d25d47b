// Package composer assembles the user-facing reply from a completed plan,
// pulled out of the teacher's inline final-answer formatting in
// MasterBrain.Think and Scheduler.pollAndExecute into a pure, testable
// function reused by both the orchestrator and the job runner.
package composer

import (
	"github.com/adiaconou/hermes/internal/core"
)

const genericFailureReply = "I couldn't complete that."

// smsCharLimit is spec.md §4.9's documented SMS body cap.
const smsCharLimit = 160

const smsAckReply = "Got it — working on a longer response, check back shortly."

// Compose picks the last completed step whose output is a non-empty
// string as the reply body, surfacing any auth-required URL verbatim. If
// no successful step produced text, it returns the generic fallback.
func Compose(plan *core.ExecutionPlan) string {
	if url, ok := authURL(plan); ok {
		return "I need you to re-authorize access first: " + url
	}

	for i := len(plan.Steps) - 1; i >= 0; i-- {
		s := plan.Steps[i]
		if s.Status != core.StepCompleted || s.Result == nil {
			continue
		}
		if text, ok := s.Result.Output.(string); ok && text != "" {
			return text
		}
	}

	return genericFailureReply
}

// authURL scans every step's result for an auth-required marker, newest
// first, and returns its URL.
func authURL(plan *core.ExecutionPlan) (string, bool) {
	for i := len(plan.Steps) - 1; i >= 0; i-- {
		s := plan.Steps[i]
		if s.Result == nil {
			continue
		}
		if url, required := s.Result.AuthRequired(); required {
			return url, true
		}
	}
	return "", false
}

// EnforceChannelLimit applies the per-channel length rule from spec.md
// §4.9: SMS bodies over smsCharLimit are replaced by a canned
// acknowledgment; every other channel passes the reply through unchanged.
func EnforceChannelLimit(reply string, ch core.Channel) string {
	if ch == core.ChannelSMS && len(reply) > smsCharLimit {
		return smsAckReply
	}
	return reply
}
