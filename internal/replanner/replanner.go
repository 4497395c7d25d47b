// Package replanner revises a plan with failures or empty results into a
// new version that preserves completed steps, generalizing the teacher's
// deadlock/consolidation handling in MasterBrain.Think into an explicit
// merge rule.
package replanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/toolsurface"
	"github.com/tmc/langchaingo/llms"
)

// AgentLister is the narrow agentregistry.Registry slice the replanner needs.
type AgentLister interface {
	Capabilities() []core.AgentCapability
}

// Replanner revises ExecutionPlans against a single LLM.
type Replanner struct {
	Model  llms.Model
	Agents AgentLister
	Limits Limits
}

// New returns a Replanner bound to model and the agent registry.
func New(model llms.Model, agents AgentLister, limits Limits) *Replanner {
	return &Replanner{Model: model, Agents: agents, Limits: limits.withDefaults()}
}

// CanReplan reports whether plan is still eligible for another revision,
// per spec.md §4.7's guard clause. Callers treat a false result as a
// terminal failure to replan — proceed straight to synthesis instead.
func (r *Replanner) CanReplan(plan *core.ExecutionPlan, elapsed time.Duration) bool {
	if plan.Version >= r.Limits.MaxReplans+1 {
		return false
	}
	if len(plan.Steps) >= r.Limits.MaxTotalSteps {
		return false
	}
	if elapsed >= r.Limits.MaxExecutionTime {
		return false
	}
	return true
}

type proposedStep struct {
	ID         string `json:"id"`
	TargetType string `json:"targetType"`
	Target     string `json:"target"`
	Task       string `json:"task"`
	Status     string `json:"status"`
}

type proposedPlan struct {
	Goal  string         `json:"goal"`
	Steps []proposedStep `json:"steps"`
}

// Replan produces a revised plan from prior, per spec.md §4.7's merge
// rule. Parse failure of the LLM response yields an empty proposed list,
// so the result retains only prior's completed steps.
func (r *Replanner) Replan(ctx context.Context, prior *core.ExecutionPlan, pctx core.PlanContext, now time.Time) (*core.ExecutionPlan, error) {
	systemPrompt := buildReplanPrompt(prior, pctx, r.Agents.Capabilities(), r.Limits)

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(systemPrompt)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(prior.UserRequest)}},
	}

	tool := llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "propose_plan",
			Description: "Submit the revised step-by-step plan for this request.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"goal": map[string]any{"type": "string"},
					"steps": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":         map[string]any{"type": "string"},
								"targetType": map[string]any{"type": "string", "enum": []string{"agent", "skill"}},
								"target":     map[string]any{"type": "string"},
								"task":       map[string]any{"type": "string"},
								"status":     map[string]any{"type": "string"},
							},
							"required": []string{"id", "targetType", "target", "task"},
						},
					},
				},
				"required": []string{"goal", "steps"},
			},
		},
	}

	var proposed proposedPlan
	resp, err := r.Model.GenerateContent(ctx, messages, llms.WithTools([]llms.Tool{tool}))
	if err == nil && len(resp.Choices) > 0 {
		raw := resp.Choices[0].Content
		for _, tc := range resp.Choices[0].ToolCalls {
			if tc.FunctionCall != nil && tc.FunctionCall.Name == "propose_plan" {
				raw = tc.FunctionCall.Arguments
				break
			}
		}
		_ = toolsurface.ParseJSONObject(raw, &proposed)
	}

	goal := prior.Goal
	if proposed.Goal != "" {
		goal = proposed.Goal
	}

	return merge(prior, proposed, goal, r.Limits, now), nil
}

// merge implements spec.md §4.7's five-step merge rule.
func merge(prior *core.ExecutionPlan, proposed proposedPlan, goal string, limits Limits, now time.Time) *core.ExecutionPlan {
	newVersion := prior.Version + 1

	steps := append([]core.PlanStep{}, prior.CompletedSteps()...)

	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		seen[key(s.TargetType, s.Target, s.Task)] = true
	}

	usedIDs := make(map[string]bool, len(steps))
	for _, s := range steps {
		usedIDs[s.ID] = true
	}

	nextIdx := len(steps) + 1
	for _, ps := range proposed.Steps {
		if ps.Status == string(core.StepCompleted) {
			continue
		}
		targetType := core.TargetAgent
		if ps.TargetType == string(core.TargetSkill) {
			targetType = core.TargetSkill
		}
		k := key(targetType, ps.Target, ps.Task)
		if seen[k] {
			continue
		}
		seen[k] = true

		id := ps.ID
		if id == "" || usedIDs[id] {
			id = fmt.Sprintf("step_%d_v%d", nextIdx, newVersion)
		}
		usedIDs[id] = true
		nextIdx++

		steps = append(steps, core.PlanStep{
			ID:         id,
			TargetType: targetType,
			Target:     ps.Target,
			Task:       ps.Task,
			Status:     core.StepPending,
			MaxRetries: core.DefaultMaxRetries,
		})
	}

	if len(steps) > limits.MaxTotalSteps {
		steps = steps[:limits.MaxTotalSteps]
	}

	return &core.ExecutionPlan{
		ID:          prior.ID,
		UserRequest: prior.UserRequest,
		Goal:        goal,
		Steps:       steps,
		Status:      core.PlanExecuting,
		Version:     newVersion,
		CreatedAt:   prior.CreatedAt,
		UpdatedAt:   now,
	}
}

func key(targetType core.TargetType, target, task string) string {
	return strings.Join([]string{string(targetType), target, task}, "\x1f")
}
