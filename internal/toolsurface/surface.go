// Package toolsurface drives an LLM tool-use loop against a registry of
// named handlers until the model returns plain text or a hard iteration
// cap is hit, generalizing the teacher repo's WorkerBrain.Think loop.
package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/tmc/langchaingo/llms"
)

// MaxToolIterations is the hard cap on tool-call round-trips per step,
// per SPEC_FULL.md §4.8's single-source-of-truth limits (≥ 10).
const MaxToolIterations = 10

// Surface drives the tool-use loop against a single LLM.
type Surface struct {
	Model    llms.Model
	Registry *Registry
}

// New returns a Surface bound to the given model and tool registry.
func New(model llms.Model, registry *Registry) *Surface {
	return &Surface{Model: model, Registry: registry}
}

// Execute runs the tool loop for one task and returns its StepResult.
// initialMessages are appended after the system/task turns, used by the
// scheduled-job runner to inject an original-user-request preamble.
func (s *Surface) Execute(ctx context.Context, systemPrompt, task string, allowedToolNames []string, ectx core.ExecutionContext, initialMessages ...llms.MessageContent) core.StepResult {
	logger := ectx.LoggerOf()
	ctx = ContextWithIdentity(ctx, ectx.UserID, ectx.Channel)

	messages := []llms.MessageContent{}
	if systemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(task)},
	})
	messages = append(messages, initialMessages...)

	llmTools := toLLMTools(s.Registry.Filter(allowedToolNames))

	var usage core.TokenUsage
	var calls []core.ToolCallRecord

	for i := 0; i < MaxToolIterations; i++ {
		resp, err := s.Model.GenerateContent(ctx, messages, llms.WithTools(llmTools))
		if err != nil {
			return core.StepResult{Success: false, Error: err.Error(), ToolCalls: calls, TokenUsage: usage}
		}
		if len(resp.Choices) == 0 {
			return core.StepResult{Success: false, Error: "llm returned no choices", ToolCalls: calls, TokenUsage: usage}
		}
		choice := resp.Choices[0]
		usage.Add(usageFrom(choice.GenerationInfo))

		assistantParts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: assistantParts})

		if len(choice.ToolCalls) == 0 {
			if choice.Content != "" {
				r := core.StepResult{Success: true, Output: choice.Content, ToolCalls: calls, TokenUsage: usage}
				r.Normalize()
				return r
			}
			return core.StepResult{Success: false, Error: "llm returned neither text nor tool calls", ToolCalls: calls, TokenUsage: usage}
		}

		for _, tc := range choice.ToolCalls {
			calls = append(calls, core.ToolCallRecord{ID: tc.ID, Name: tc.FunctionCall.Name, Input: tc.FunctionCall.Arguments})
			result := s.invoke(ctx, tc.FunctionCall.Name, tc.FunctionCall.Arguments, logger)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{ToolCallID: tc.ID, Name: tc.FunctionCall.Name, Content: result},
				},
			})
		}
	}

	return core.StepResult{Success: false, Error: "tool loop exceeded", ToolCalls: calls, TokenUsage: usage}
}

// invoke resolves and runs a single tool call, converting any failure
// (missing handler or thrown error) into a tool_result string so the model
// can recover, per SPEC_FULL.md §4.1 step 3.b.
func (s *Surface) invoke(ctx context.Context, name, input string, logger core.Logger) string {
	tool := s.Registry.Get(name)
	if tool == nil {
		logger.Warnf("tool surface: unknown tool %q requested by model", name)
		return fmt.Sprintf("error: tool %q is not available", name)
	}
	out, err := tool.Execute(ctx, input)
	if err != nil {
		logger.Warnf("tool surface: tool %q failed: %v", name, err)
		return fmt.Sprintf("error: %v", err)
	}
	return out
}

func toLLMTools(tools []Tool) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}

func usageFrom(info map[string]any) core.TokenUsage {
	if info == nil {
		return core.TokenUsage{}
	}
	usage, ok := info["Usage"].(map[string]any)
	if !ok {
		return core.TokenUsage{}
	}
	in, _ := usage["PromptTokens"].(int)
	out, _ := usage["CompletionTokens"].(int)
	return core.TokenUsage{Input: in, Output: out}
}

// ParseJSONObject unmarshals a JSON object from raw text, tolerating a
// surrounding markdown code fence (```json ... ```), per the planner's
// parse-tolerance requirement (SPEC_FULL.md §4.5).
func ParseJSONObject(raw string, dst any) error {
	return json.Unmarshal([]byte(StripCodeFence(raw)), dst)
}

// StripCodeFence removes a leading/trailing ```...``` fence, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
