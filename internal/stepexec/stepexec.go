// Package stepexec runs a single plan step to completion, generalizing the
// teacher's MasterBrain.Think per-step dispatch plus WorkerBrain's
// executeWithRetry policy-gated retry loop.
package stepexec

import (
	"context"
	"fmt"
	"time"

	"github.com/adiaconou/hermes/internal/agentregistry"
	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/governance"
	"github.com/adiaconou/hermes/internal/observability"
	"github.com/adiaconou/hermes/internal/skillregistry"
	"github.com/adiaconou/hermes/internal/toolsurface"
)

// Executor runs individual PlanSteps against the agent and skill registries.
type Executor struct {
	Agents     *agentregistry.Registry
	Skills     *skillregistry.Registry
	Surface    *toolsurface.Surface
	Governance governance.PolicyEngine
	RetryDelay time.Duration // base backoff before a retry re-run; 0 = no delay
}

// New returns an Executor wired to the given collaborators. retryDelay is
// the base backoff before re-running a transiently-failed step; pass 0 in
// tests to avoid sleeping.
func New(agents *agentregistry.Registry, skills *skillregistry.Registry, surface *toolsurface.Surface, gov governance.PolicyEngine, retryDelay time.Duration) *Executor {
	return &Executor{Agents: agents, Skills: skills, Surface: surface, Governance: gov, RetryDelay: retryDelay}
}

// Execute runs step to completion — including its in-place retry loop — and
// mutates step.Status/RetryCount/Result, per spec.md §4.6.
func (e *Executor) Execute(ctx context.Context, step *core.PlanStep, ectx core.ExecutionContext) {
	step.Status = core.StepRunning

	observability.SetStatus(observability.RoleSlave, step.Task)
	defer observability.SetStatus(observability.RoleIdle, "")

	for {
		if e.Governance != nil {
			policyRes, err := e.Governance.Evaluate(ctx, governance.Request{Tool: step.Target, Arguments: step.Task, ChatID: ectx.UserID})
			if err != nil {
				step.Result = &core.StepResult{Success: false, Error: fmt.Sprintf("policy evaluation failed: %v", err)}
				step.Status = core.StepFailed
				return
			}
			if policyRes.Effect == governance.EffectDeny {
				step.Result = &core.StepResult{Success: false, Error: fmt.Sprintf("policy denied: %s", policyRes.Reason)}
				step.Status = core.StepFailed
				return
			}
		}

		result := e.dispatch(ctx, step, ectx)
		result.Normalize()
		step.Result = &result

		if result.Success {
			step.Status = core.StepCompleted
			return
		}

		if step.RetryCount < step.MaxRetries && result.Retryable() {
			step.RetryCount++
			if e.RetryDelay > 0 {
				select {
				case <-ctx.Done():
					step.Status = core.StepFailed
					return
				case <-time.After(e.RetryDelay * time.Duration(1<<uint(step.RetryCount-1))):
				}
			}
			continue
		}

		step.Status = core.StepFailed
		return
	}
}

func (e *Executor) dispatch(ctx context.Context, step *core.PlanStep, ectx core.ExecutionContext) core.StepResult {
	switch step.TargetType {
	case core.TargetAgent:
		return e.Agents.RouteToAgent(ctx, step.Target, step.Task, ectx)
	case core.TargetSkill:
		return e.Skills.ExecuteByName(ctx, e.Surface, step.Target, step.Task, ectx)
	default:
		return core.StepResult{Success: false, Error: fmt.Sprintf("unknown target type %q", step.TargetType)}
	}
}
