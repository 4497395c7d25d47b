// Package orchestrator owns the plan lifecycle: plan, execute the next
// step, decide whether to replan or finish, and synthesize a reply,
// generalizing the teacher's MasterBrain.Think loop.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/adiaconou/hermes/internal/composer"
	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/observability"
	"github.com/adiaconou/hermes/internal/planner"
	"github.com/adiaconou/hermes/internal/replanner"
	"github.com/adiaconou/hermes/internal/stepexec"
)

// Result is the orchestrator's outcome for one Handle call.
type Result struct {
	Success  bool
	Response string
	Plan     *core.ExecutionPlan
}

// Orchestrator wires the Planner, Replanner, and Step Executor together.
type Orchestrator struct {
	Planner   *planner.Planner
	Replanner *replanner.Replanner
	StepExec  *stepexec.Executor
	Limits    Limits
}

// New returns an Orchestrator bound to the given collaborators.
func New(p *planner.Planner, r *replanner.Replanner, se *stepexec.Executor, limits Limits) *Orchestrator {
	return &Orchestrator{Planner: p, Replanner: r, StepExec: se, Limits: limits.withDefaults()}
}

// Handle runs one full plan → execute → decide → synthesize cycle for a
// single inbound message, per spec.md §4.8.
func (o *Orchestrator) Handle(ctx context.Context, pctx core.PlanContext, ectx core.ExecutionContext, mediaContext string) (Result, error) {
	start := time.Now()

	observability.SetStatus(observability.RoleMaster, "Planning...")
	defer observability.SetStatus(observability.RoleIdle, "")

	plan, err := o.Planner.Plan(ctx, pctx, mediaContext)
	if err != nil {
		return Result{}, err
	}

	if ectx.StepResults == nil {
		ectx.StepResults = make(map[string]*core.StepResult)
	}
	if pctx.StepResults == nil {
		pctx.StepResults = make(map[string]*core.StepResult)
	}

	for iterations := 0; iterations < o.Limits.SafetyIterationCap; iterations++ {
		step := plan.FirstPending()
		if step == nil {
			break
		}

		stepIdx := indexOf(plan, step.ID)
		hasSubsequentStep := stepIdx < len(plan.Steps)-1
		hasBudgetRoom := len(plan.Steps) < o.Limits.MaxTotalSteps

		observability.SetStatus(observability.RoleMaster, fmt.Sprintf("Step %s: %s", step.ID, step.Task))
		o.StepExec.Execute(ctx, step, ectx)
		ectx.StepResults[step.ID] = step.Result
		pctx.StepResults[step.ID] = step.Result

		if shouldReplan(step.Result, hasSubsequentStep, hasBudgetRoom) {
			elapsed := time.Since(start)
			if o.Replanner.CanReplan(plan, elapsed) {
				revised, err := o.Replanner.Replan(ctx, plan, pctx, time.Now())
				if err == nil {
					plan = revised
					continue
				}
			}
		}

		if time.Since(start) >= o.Limits.MaxExecutionTime {
			break
		}
	}

	reply := composer.Compose(plan)
	reply = composer.EnforceChannelLimit(reply, pctx.Channel)

	plan.Status = finalStatus(plan)
	plan.UpdatedAt = time.Now()

	return Result{Success: plan.Status == core.PlanCompleted, Response: reply, Plan: plan}, nil
}

// shouldReplan implements spec.md §4.8's precedence exactly: needsReplan,
// then failure-with-a-subsequent-step-queued, then isEmpty-with-step-
// budget-room. This order is load-bearing and must not be rearranged.
// "Remaining" means two different things for the two trailing clauses, per
// the worked examples in spec.md §8: a failure only triggers a replan if
// the plan already has a later step queued (failure on the last queued
// step is definitive, scenario 6); an empty result triggers a replan
// whenever there is still room to add steps under maxTotalSteps, even on
// a single-step plan (scenario 3).
func shouldReplan(result *core.StepResult, hasSubsequentStep, hasBudgetRoom bool) bool {
	if result == nil {
		return false
	}
	if result.NeedsReplan() {
		return true
	}
	if !result.Success && hasSubsequentStep {
		return true
	}
	if result.IsEmpty() && hasBudgetRoom {
		return true
	}
	return false
}

func indexOf(plan *core.ExecutionPlan, id string) int {
	for i, s := range plan.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// finalStatus reports PlanFailed if any step ended failed, PlanCompleted
// otherwise — "plan terminal steps succeeded" per spec.md §4.8.
func finalStatus(plan *core.ExecutionPlan) core.PlanStatus {
	for _, s := range plan.Steps {
		if s.Status == core.StepFailed {
			return core.PlanFailed
		}
	}
	return core.PlanCompleted
}
