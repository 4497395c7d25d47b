package replanner

import (
	"fmt"
	"strings"

	"github.com/adiaconou/hermes/internal/core"
)

const maxOutputSummaryChars = 200

// buildReplanPrompt assembles the replan system prompt: available agents,
// the original request and goal, a per-step summary, the accumulated
// errors, and the remaining step budget, per spec.md §4.7.
func buildReplanPrompt(prior *core.ExecutionPlan, pctx core.PlanContext, agents []core.AgentCapability, limits Limits) string {
	var b strings.Builder

	b.WriteString("Available agents:\n")
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Description)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Original request: %s\nGoal: %s\n\n", prior.UserRequest, prior.Goal)

	b.WriteString("Steps so far:\n")
	for _, s := range prior.Steps {
		fmt.Fprintf(&b, "[%s] %s (%s)\n", s.ID, s.Target, s.Status)
		fmt.Fprintf(&b, "    Task: %s\n", s.Task)
		b.WriteString("    Result: " + summarizeResult(s.Result) + "\n")
	}
	b.WriteString("\n")

	if len(pctx.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range pctx.Errors {
			fmt.Fprintf(&b, "- %s: %s\n", e.StepID, e.Error)
		}
		b.WriteString("\n")
	}

	remaining := limits.MaxTotalSteps - len(prior.CompletedSteps())
	if remaining < 0 {
		remaining = 0
	}
	fmt.Fprintf(&b, "Remaining step budget: %d\n", remaining)
	b.WriteString("Respond by calling propose_plan exactly once with the revised step list.\n")
	b.WriteString("Steps already completed will be preserved automatically — only propose new or revised pending work.\n")

	return b.String()
}

func summarizeResult(r *core.StepResult) string {
	if r == nil {
		return "(not yet run)"
	}
	if !r.Success {
		return "FAILED - " + r.Error
	}
	out := fmt.Sprintf("%v", r.Output)
	if len(out) > maxOutputSummaryChars {
		out = out[:maxOutputSummaryChars] + "..."
	}
	return "SUCCESS - " + out
}
