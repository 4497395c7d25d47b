package toolsurface

import (
	"context"

	"github.com/adiaconou/hermes/internal/core"
)

type userIDKey struct{}
type channelKey struct{}

// UserIDFromContext returns the acting user's ID, as set by Surface.Execute,
// for tool handlers that need to scope their work to the caller, mirroring
// the teacher's ctx.Value("chatID") convention for its cron tool.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// ChannelFromContext returns the channel the acting request arrived on.
func ChannelFromContext(ctx context.Context) core.Channel {
	ch, _ := ctx.Value(channelKey{}).(core.Channel)
	return ch
}

// ContextWithIdentity attaches a user ID and channel to ctx the same way
// Surface.Execute does, for tools and their tests that need to construct a
// context without driving a full tool-use loop.
func ContextWithIdentity(ctx context.Context, userID string, channel core.Channel) context.Context {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	ctx = context.WithValue(ctx, channelKey{}, channel)
	return ctx
}

// Tool is a single named, schema-typed operation invocable by the LLM
// during a tool-execution-surface step.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's input
	Execute(ctx context.Context, input string) (string, error)
}

// Retryable is a marker interface an Execute error can implement. Nothing
// in this module checks it: Surface.invoke turns every tool error into a
// tool_result string for the model, and the step executor classifies
// failures with core.StepResult.Retryable instead.
type Retryable interface {
	error
	Retryable() bool
}

// Registry maps tool names to handlers, generalizing tools.Registry from the
// teacher repo one-for-one.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or overwrites a tool by name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get looks up a tool by name, returning nil if absent.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// List returns every registered tool, in no particular order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Filter returns the subset of tools whose name is in allowed, or every
// tool if allowed is exactly ["*"].
func (r *Registry) Filter(allowed []string) []Tool {
	if len(allowed) == 1 && allowed[0] == "*" {
		return r.List()
	}
	want := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		want[n] = true
	}
	out := make([]Tool, 0, len(allowed))
	for _, t := range r.List() {
		if want[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}
