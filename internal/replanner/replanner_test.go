package replanner

import (
	"context"
	"testing"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct{ resp *llms.ContentResponse }

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return f.resp, nil
}
func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

type fakeAgents struct{}

func (fakeAgents) Capabilities() []core.AgentCapability { return nil }

func toolCall(args string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{ID: "c1", FunctionCall: &llms.FunctionCall{Name: "propose_plan", Arguments: args}}},
	}}}
}

func priorWithOneCompletedOneFailed() *core.ExecutionPlan {
	return &core.ExecutionPlan{
		ID:          "plan-1",
		UserRequest: "find my hotel confirmation",
		Goal:        "locate confirmation email",
		Version:     1,
		CreatedAt:   time.Now(),
		Steps: []core.PlanStep{
			{ID: "step_1", TargetType: core.TargetAgent, Target: "email-agent", Task: "search 'Arizona hotel'", Status: core.StepCompleted,
				Result: &core.StepResult{Success: true, Output: map[string]any{"isEmpty": true}}},
			{ID: "step_2", TargetType: core.TargetAgent, Target: "email-agent", Task: "open the confirmation email", Status: core.StepFailed,
				Result: &core.StepResult{Success: false, Error: "no matching email"}},
		},
	}
}

func TestCanReplan_RefusesAtVersionCeiling(t *testing.T) {
	r := New(&fakeModel{}, fakeAgents{}, Limits{MaxReplans: 1})
	plan := &core.ExecutionPlan{Version: 2}
	if r.CanReplan(plan, 0) {
		t.Fatal("expected refusal once version reaches maxReplans+1")
	}
}

func TestCanReplan_RefusesAtStepCeiling(t *testing.T) {
	r := New(&fakeModel{}, fakeAgents{}, Limits{MaxTotalSteps: 2})
	plan := &core.ExecutionPlan{Version: 1, Steps: make([]core.PlanStep, 2)}
	if r.CanReplan(plan, 0) {
		t.Fatal("expected refusal at the total step ceiling")
	}
}

func TestCanReplan_RefusesPastElapsedBudget(t *testing.T) {
	r := New(&fakeModel{}, fakeAgents{}, Limits{MaxExecutionTime: time.Second})
	plan := &core.ExecutionPlan{Version: 1}
	if r.CanReplan(plan, 2*time.Second) {
		t.Fatal("expected refusal once elapsed exceeds the time budget")
	}
}

func TestReplan_PreservesCompletedStepsAndAppendsNovel(t *testing.T) {
	model := &fakeModel{resp: toolCall(`{"goal":"broader search","steps":[
		{"id":"step_1","targetType":"agent","target":"email-agent","task":"search 'Arizona hotel'","status":"completed"},
		{"id":"step_2","targetType":"agent","target":"email-agent","task":"broader search 'arizona newer_than:2y'","status":"pending"}
	]}`)}
	r := New(model, fakeAgents{}, DefaultLimits)
	prior := priorWithOneCompletedOneFailed()

	revised, err := r.Replan(context.Background(), prior, core.PlanContext{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revised.Version != 2 {
		t.Errorf("expected version 2, got %d", revised.Version)
	}
	if len(revised.Steps) != 2 {
		t.Fatalf("expected completed step preserved plus one new step, got %+v", revised.Steps)
	}
	if revised.Steps[0].ID != "step_1" || revised.Steps[0].Status != core.StepCompleted {
		t.Errorf("expected completed step preserved verbatim, got %+v", revised.Steps[0])
	}
	if revised.Steps[1].Task != "broader search 'arizona newer_than:2y'" || revised.Steps[1].Status != core.StepPending {
		t.Errorf("expected new pending step appended, got %+v", revised.Steps[1])
	}
}

func TestReplan_SkipsDuplicateTargetTaskPairs(t *testing.T) {
	model := &fakeModel{resp: toolCall(`{"goal":"g","steps":[
		{"id":"step_1","targetType":"agent","target":"email-agent","task":"search 'Arizona hotel'","status":"completed"}
	]}`)}
	r := New(model, fakeAgents{}, DefaultLimits)
	prior := priorWithOneCompletedOneFailed()

	revised, err := r.Replan(context.Background(), prior, core.PlanContext{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(revised.Steps) != 1 {
		t.Fatalf("expected no duplicate step appended, got %+v", revised.Steps)
	}
}

func TestReplan_ParseFailureYieldsOnlyCompletedSteps(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "not json"}}}}
	r := New(model, fakeAgents{}, DefaultLimits)
	prior := priorWithOneCompletedOneFailed()

	revised, err := r.Replan(context.Background(), prior, core.PlanContext{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(revised.Steps) != 1 || revised.Steps[0].ID != "step_1" {
		t.Fatalf("expected only the prior completed step retained, got %+v", revised.Steps)
	}
}

func TestReplan_RenumbersIDCollisions(t *testing.T) {
	model := &fakeModel{resp: toolCall(`{"goal":"g","steps":[
		{"id":"step_1","targetType":"agent","target":"email-agent","task":"search 'Arizona hotel'","status":"completed"},
		{"id":"step_1","targetType":"agent","target":"calendar-agent","task":"check travel dates","status":"pending"}
	]}`)}
	r := New(model, fakeAgents{}, DefaultLimits)
	prior := priorWithOneCompletedOneFailed()

	revised, err := r.Replan(context.Background(), prior, core.PlanContext{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(revised.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %+v", revised.Steps)
	}
	if revised.Steps[1].ID == "step_1" {
		t.Errorf("expected colliding id to be renumbered, got %q", revised.Steps[1].ID)
	}
}

func TestReplan_TruncatesToMaxTotalSteps(t *testing.T) {
	model := &fakeModel{resp: toolCall(`{"goal":"g","steps":[
		{"id":"step_1","targetType":"agent","target":"email-agent","task":"search 'Arizona hotel'","status":"completed"},
		{"id":"step_2","targetType":"agent","target":"a","task":"x","status":"pending"},
		{"id":"step_3","targetType":"agent","target":"b","task":"y","status":"pending"}
	]}`)}
	r := New(model, fakeAgents{}, Limits{MaxTotalSteps: 2, MaxReplans: 2, MaxExecutionTime: time.Minute})
	prior := priorWithOneCompletedOneFailed()

	revised, err := r.Replan(context.Background(), prior, core.PlanContext{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(revised.Steps) != 2 {
		t.Fatalf("expected truncation to 2 steps, got %d", len(revised.Steps))
	}
}
