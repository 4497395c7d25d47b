// Package planner produces an ExecutionPlan from a user request, the
// windowed conversation, known facts, and the agent/skill registries,
// mirroring the teacher's MasterBrain.plan structured-tool-call contract.
package planner

import (
	"context"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/toolsurface"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// AgentLister is the narrow agentregistry.Registry slice the planner needs.
type AgentLister interface {
	Capabilities() []core.AgentCapability
}

// SkillLister is the narrow skillregistry.Registry slice the planner needs.
type SkillLister interface {
	All() []core.LoadedSkill
}

// Planner builds ExecutionPlans against a single LLM.
type Planner struct {
	Model  llms.Model
	Agents AgentLister
	Skills SkillLister
	Limits Limits
}

// New returns a Planner bound to model and the two registries.
func New(model llms.Model, agents AgentLister, skills SkillLister, limits Limits) *Planner {
	return &Planner{Model: model, Agents: agents, Skills: skills, Limits: limits.withDefaults()}
}

// proposedPlan is the raw shape the LLM is forced to emit via propose_plan.
type proposedPlan struct {
	Goal  string `json:"goal"`
	Steps []struct {
		ID         string `json:"id"`
		TargetType string `json:"targetType"`
		Target     string `json:"target"`
		Task       string `json:"task"`
	} `json:"steps"`
}

// Plan produces an ExecutionPlan for pctx. It never returns an error to the
// caller: any LLM failure or parse failure degrades to the documented
// single-step general-agent fallback, per spec.md §4.5.
func (p *Planner) Plan(ctx context.Context, pctx core.PlanContext, mediaContext string) (*core.ExecutionPlan, error) {
	systemPrompt := buildSystemPrompt(pctx, p.Agents.Capabilities(), p.Skills.All(), mediaContext, p.Limits)

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(systemPrompt)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(pctx.UserMessage)}},
	}

	tool := llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        proposePlanTool.Name,
			Description: "Submit the structured step-by-step plan for this request.",
			Parameters:  proposePlanTool.Schema,
		},
	}

	resp, err := p.Model.GenerateContent(ctx, messages, llms.WithTools([]llms.Tool{tool}))
	if err != nil {
		return p.fallbackPlan(pctx), nil
	}
	if len(resp.Choices) == 0 {
		return p.fallbackPlan(pctx), nil
	}

	choice := resp.Choices[0]
	var raw string
	found := false
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall != nil && tc.FunctionCall.Name == proposePlanTool.Name {
			raw = tc.FunctionCall.Arguments
			found = true
			break
		}
	}
	if !found {
		raw = choice.Content
	}

	var parsed proposedPlan
	if err := toolsurface.ParseJSONObject(raw, &parsed); err != nil {
		return p.fallbackPlan(pctx), nil
	}

	plan := &core.ExecutionPlan{
		ID:          uuid.NewString(),
		UserRequest: pctx.UserMessage,
		Goal:        parsed.Goal,
		Status:      core.PlanExecuting,
		Version:     1,
		CreatedAt:   pctx.Now,
		UpdatedAt:   pctx.Now,
	}
	for _, s := range parsed.Steps {
		targetType := core.TargetAgent
		if s.TargetType == string(core.TargetSkill) {
			targetType = core.TargetSkill
		}
		plan.Steps = append(plan.Steps, core.PlanStep{
			ID:         s.ID,
			TargetType: targetType,
			Target:     s.Target,
			Task:       s.Task,
			Status:     core.StepPending,
			MaxRetries: core.DefaultMaxRetries,
		})
	}
	if len(plan.Steps) > p.Limits.MaxTotalSteps {
		plan.Steps = plan.Steps[:p.Limits.MaxTotalSteps]
	}
	if len(plan.Steps) == 0 {
		return p.fallbackPlan(pctx), nil
	}

	resolveTaskDates(plan.Steps, pctx.UserConfig, pctx.Now)
	return plan, nil
}

// fallbackPlan is the documented degrade-gracefully plan: a single step
// targeting general-agent with the raw user message.
func (p *Planner) fallbackPlan(pctx core.PlanContext) *core.ExecutionPlan {
	return &core.ExecutionPlan{
		ID:          uuid.NewString(),
		UserRequest: pctx.UserMessage,
		Goal:        "respond to user",
		Status:      core.PlanExecuting,
		Version:     1,
		CreatedAt:   pctx.Now,
		UpdatedAt:   pctx.Now,
		Steps: []core.PlanStep{{
			ID:         "step_1",
			TargetType: core.TargetAgent,
			Target:     "general-agent",
			Task:       pctx.UserMessage,
			Status:     core.StepPending,
			MaxRetries: core.DefaultMaxRetries,
		}},
	}
}
