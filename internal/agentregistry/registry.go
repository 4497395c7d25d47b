// Package agentregistry is the static name → (capability, executor) mapping
// the planner reads and the step executor routes through, generalizing the
// teacher's tools.Registry to agent-level dispatch.
package agentregistry

import (
	"context"
	"strings"

	"github.com/adiaconou/hermes/internal/core"
)

// FallbackAgentName is routed to when an unknown agent name is requested.
const FallbackAgentName = "general-agent"

// Executor runs one agent invocation to completion.
type Executor func(ctx context.Context, task string, ectx core.ExecutionContext) core.StepResult

// Record pairs an agent's capability descriptor with its executor.
type Record struct {
	Capability core.AgentCapability
	Executor   Executor
}

// Registry is the static, read-only-after-build set of agents.
type Registry struct {
	records map[string]Record
}

// New builds a Registry from a list of records, keyed by capability name.
func New(records []Record) *Registry {
	r := &Registry{records: make(map[string]Record, len(records))}
	for _, rec := range records {
		r.records[rec.Capability.Name] = rec
	}
	return r
}

// Capabilities returns every registered agent's capability descriptor, for
// the planner's prompt construction.
func (r *Registry) Capabilities() []core.AgentCapability {
	out := make([]core.AgentCapability, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Capability)
	}
	return out
}

// Get looks up a record by name.
func (r *Registry) Get(name string) (Record, bool) {
	rec, ok := r.records[name]
	return rec, ok
}

// RouteToAgent dispatches task to the named agent, falling back to
// general-agent on an unknown name, and to a typed failure if even the
// fallback is unregistered, per SPEC_FULL.md §4.2.
func (r *Registry) RouteToAgent(ctx context.Context, name, task string, ectx core.ExecutionContext) core.StepResult {
	rec, ok := r.records[name]
	if !ok {
		ectx.LoggerOf().Warnf("agent registry: unknown agent %q, falling back to %q", name, FallbackAgentName)
		rec, ok = r.records[FallbackAgentName]
		if !ok {
			return core.StepResult{Success: false, Error: "unknown agent"}
		}
	}
	res := rec.Executor(ctx, task, ectx)
	res.Normalize()
	return res
}

// BuildSystemPrompt resolves {userContext} and {timeContext} placeholders in
// a static agent prompt template, per SPEC_FULL.md §4.2.
func BuildSystemPrompt(template string, ectx core.ExecutionContext, timeContext string) string {
	userContext := "unknown user"
	if ectx.Profile != nil && ectx.Profile.Name != "" {
		userContext = ectx.Profile.Name
	}
	out := template
	out = strings.ReplaceAll(out, "{userContext}", userContext)
	out = strings.ReplaceAll(out, "{timeContext}", timeContext)
	return out
}
