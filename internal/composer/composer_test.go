package composer

import (
	"strings"
	"testing"

	"github.com/adiaconou/hermes/internal/core"
)

func TestCompose_PicksLastCompletedTextOutput(t *testing.T) {
	plan := &core.ExecutionPlan{Steps: []core.PlanStep{
		{Status: core.StepCompleted, Result: &core.StepResult{Success: true, Output: "first"}},
		{Status: core.StepCompleted, Result: &core.StepResult{Success: true, Output: "second"}},
		{Status: core.StepFailed, Result: &core.StepResult{Success: false, Error: "boom"}},
	}}
	if got := Compose(plan); got != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}
}

func TestCompose_SurfacesAuthRequiredVerbatim(t *testing.T) {
	plan := &core.ExecutionPlan{Steps: []core.PlanStep{
		{Status: core.StepCompleted, Result: &core.StepResult{Success: true, Output: "ignored"}},
		{Status: core.StepFailed, Result: &core.StepResult{Success: false, Output: map[string]any{
			"auth_required": true, "auth_url": "https://auth.example.com/grant",
		}}},
	}}
	got := Compose(plan)
	if !strings.Contains(got, "https://auth.example.com/grant") {
		t.Errorf("expected auth url verbatim in reply, got %q", got)
	}
}

func TestCompose_GenericFallbackWhenNoTextOutput(t *testing.T) {
	plan := &core.ExecutionPlan{Steps: []core.PlanStep{
		{Status: core.StepFailed, Result: &core.StepResult{Success: false, Error: "boom"}},
	}}
	if got := Compose(plan); got != genericFailureReply {
		t.Errorf("got %q, want %q", got, genericFailureReply)
	}
}

func TestEnforceChannelLimit_ReplacesLongSMSWithAck(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := EnforceChannelLimit(long, core.ChannelSMS)
	if got != smsAckReply {
		t.Errorf("expected canned ack for long SMS body, got %q", got)
	}
}

func TestEnforceChannelLimit_PassesThroughOtherChannels(t *testing.T) {
	long := strings.Repeat("x", 200)
	if got := EnforceChannelLimit(long, core.ChannelEmail); got != long {
		t.Error("expected non-SMS channels to pass through unchanged")
	}
}

func TestEnforceChannelLimit_ShortSMSPassesThrough(t *testing.T) {
	short := "ok, done"
	if got := EnforceChannelLimit(short, core.ChannelSMS); got != short {
		t.Errorf("got %q, want unchanged %q", got, short)
	}
}
