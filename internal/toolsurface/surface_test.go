package toolsurface

import (
	"context"
	"testing"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays a fixed sequence of responses, one per GenerateContent call.
type fakeModel struct {
	responses []*llms.ContentResponse
	calls     int
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.calls >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func toolCallResponse(name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:           "call_1",
				FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
			}},
		}},
	}
}

type echoTool struct{}

func (echoTool) Name() string                   { return "echo" }
func (echoTool) Description() string            { return "echoes input" }
func (echoTool) Parameters() map[string]any     { return map[string]any{"type": "object"} }
func (echoTool) Execute(_ context.Context, in string) (string, error) { return "echo:" + in, nil }

func TestSurface_ReturnsTextWhenNoToolCalls(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("hi there")}}
	reg := NewRegistry()
	s := New(model, reg)

	res := s.Execute(context.Background(), "system", "task", []string{"*"}, core.ExecutionContext{})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Output != "hi there" {
		t.Errorf("expected output %q, got %v", "hi there", res.Output)
	}
	if len(res.ToolCalls) != 0 {
		t.Errorf("expected no tool calls recorded, got %d", len(res.ToolCalls))
	}
}

func TestSurface_RunsToolThenReturnsText(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("echo", `{"x":1}`),
		textResponse("done"),
	}}
	reg := NewRegistry()
	reg.Register(echoTool{})
	s := New(model, reg)

	res := s.Execute(context.Background(), "system", "task", []string{"echo"}, core.ExecutionContext{})
	if !res.Success || res.Output != "done" {
		t.Fatalf("expected successful final text, got %+v", res)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Name != "echo" {
		t.Errorf("expected one recorded echo call, got %+v", res.ToolCalls)
	}
}

func TestSurface_UnknownToolBecomesRecoverableError(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("does_not_exist", `{}`),
		textResponse("recovered"),
	}}
	s := New(model, NewRegistry())

	res := s.Execute(context.Background(), "system", "task", []string{"*"}, core.ExecutionContext{})
	if !res.Success || res.Output != "recovered" {
		t.Fatalf("expected the model to recover after a missing-tool error, got %+v", res)
	}
}

func TestSurface_IterationCapReturnsFailure(t *testing.T) {
	resp := toolCallResponse("echo", `{}`)
	model := &fakeModel{responses: []*llms.ContentResponse{resp}} // repeats forever via fakeModel clamp
	reg := NewRegistry()
	reg.Register(echoTool{})
	s := New(model, reg)

	res := s.Execute(context.Background(), "system", "task", []string{"*"}, core.ExecutionContext{})
	if res.Success {
		t.Fatal("expected failure once the tool loop exceeds MaxToolIterations")
	}
	if res.Error != "tool loop exceeded" {
		t.Errorf("expected %q, got %q", "tool loop exceeded", res.Error)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                     `{"a":1}`,
		"```json\n{\"a\":1}\n```":     `{"a":1}`,
		"```\n{\"a\":1}\n```":         `{"a":1}`,
		"  {\"a\":1}  ":               `{"a":1}`,
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
