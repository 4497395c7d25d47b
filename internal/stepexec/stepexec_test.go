package stepexec

import (
	"context"
	"testing"

	"github.com/adiaconou/hermes/internal/agentregistry"
	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/governance"
	"github.com/adiaconou/hermes/internal/skillregistry"
)

func newStep(target string, retries int) *core.PlanStep {
	return &core.PlanStep{ID: "step_1", TargetType: core.TargetAgent, Target: target, Task: "do it", MaxRetries: retries}
}

func TestExecute_SuccessMarksCompleted(t *testing.T) {
	agents := agentregistry.New([]agentregistry.Record{
		{Capability: core.AgentCapability{Name: "echo-agent"}, Executor: func(_ context.Context, task string, _ core.ExecutionContext) core.StepResult {
			return core.StepResult{Success: true, Output: "ok: " + task}
		}},
	})
	skills, _ := skillregistry.Load(t.TempDir(), "", skillregistry.Limits{})
	ex := New(agents, skills, nil, governance.NewDefaultPolicyEngine(), 0)

	step := newStep("echo-agent", 2)
	ex.Execute(context.Background(), step, core.ExecutionContext{})

	if step.Status != core.StepCompleted {
		t.Fatalf("expected completed, got %v (%+v)", step.Status, step.Result)
	}
}

func TestExecute_NonTransientFailureDoesNotRetry(t *testing.T) {
	calls := 0
	agents := agentregistry.New([]agentregistry.Record{
		{Capability: core.AgentCapability{Name: "flaky"}, Executor: func(_ context.Context, _ string, _ core.ExecutionContext) core.StepResult {
			calls++
			return core.StepResult{Success: false, Error: "invalid request: missing field"}
		}},
	})
	skills, _ := skillregistry.Load(t.TempDir(), "", skillregistry.Limits{})
	ex := New(agents, skills, nil, governance.NewDefaultPolicyEngine(), 0)

	step := newStep("flaky", 2)
	ex.Execute(context.Background(), step, core.ExecutionContext{})

	if step.Status != core.StepFailed {
		t.Fatalf("expected failed, got %v", step.Status)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call for a non-transient error, got %d", calls)
	}
}

func TestExecute_TransientFailureRetriesThenSucceeds(t *testing.T) {
	calls := 0
	agents := agentregistry.New([]agentregistry.Record{
		{Capability: core.AgentCapability{Name: "flaky"}, Executor: func(_ context.Context, _ string, _ core.ExecutionContext) core.StepResult {
			calls++
			if calls < 2 {
				return core.StepResult{Success: false, Error: "connection timeout"}
			}
			return core.StepResult{Success: true, Output: "recovered"}
		}},
	})
	skills, _ := skillregistry.Load(t.TempDir(), "", skillregistry.Limits{})
	ex := New(agents, skills, nil, governance.NewDefaultPolicyEngine(), 0)

	step := newStep("flaky", 2)
	ex.Execute(context.Background(), step, core.ExecutionContext{})

	if step.Status != core.StepCompleted {
		t.Fatalf("expected eventual success, got %v", step.Status)
	}
	if step.RetryCount != 1 {
		t.Errorf("expected one retry recorded, got %d", step.RetryCount)
	}
}

func TestExecute_ExhaustsRetriesThenFails(t *testing.T) {
	agents := agentregistry.New([]agentregistry.Record{
		{Capability: core.AgentCapability{Name: "always-timeout"}, Executor: func(_ context.Context, _ string, _ core.ExecutionContext) core.StepResult {
			return core.StepResult{Success: false, Error: "timeout"}
		}},
	})
	skills, _ := skillregistry.Load(t.TempDir(), "", skillregistry.Limits{})
	ex := New(agents, skills, nil, governance.NewDefaultPolicyEngine(), 0)

	step := newStep("always-timeout", 2)
	ex.Execute(context.Background(), step, core.ExecutionContext{})

	if step.Status != core.StepFailed {
		t.Fatalf("expected failed after exhausting retries, got %v", step.Status)
	}
	if step.RetryCount != step.MaxRetries {
		t.Errorf("expected retry count to reach max (%d), got %d", step.MaxRetries, step.RetryCount)
	}
}

func TestExecute_PolicyDenyShortCircuits(t *testing.T) {
	calls := 0
	agents := agentregistry.New([]agentregistry.Record{
		{Capability: core.AgentCapability{Name: "denied"}, Executor: func(_ context.Context, _ string, _ core.ExecutionContext) core.StepResult {
			calls++
			return core.StepResult{Success: true}
		}},
	})
	skills, _ := skillregistry.Load(t.TempDir(), "", skillregistry.Limits{})
	pol := governance.NewDefaultPolicyEngine()
	pol.DenyTool("denied")
	ex := New(agents, skills, nil, pol, 0)

	step := newStep("denied", 2)
	ex.Execute(context.Background(), step, core.ExecutionContext{})

	if step.Status != core.StepFailed {
		t.Fatalf("expected denied step to fail, got %v", step.Status)
	}
	if calls != 0 {
		t.Error("expected the executor to never be invoked once policy denies")
	}
}

func TestExecute_UnknownAgentFails(t *testing.T) {
	agents := agentregistry.New(nil)
	skills, _ := skillregistry.Load(t.TempDir(), "", skillregistry.Limits{})
	ex := New(agents, skills, nil, governance.NewDefaultPolicyEngine(), 0)

	step := newStep("nonexistent", 0)
	ex.Execute(context.Background(), step, core.ExecutionContext{})

	if step.Status != core.StepFailed {
		t.Fatalf("expected failure for unknown agent with no fallback, got %v", step.Status)
	}
}
