package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adiaconou/hermes/internal/convwindow"
	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/orchestrator"
	"github.com/adiaconou/hermes/internal/store"
)

type fakeOrchestrator struct {
	result orchestrator.Result
	err    error

	lastPlan core.PlanContext
	lastExec core.ExecutionContext
	calls    int
}

func (f *fakeOrchestrator) Handle(ctx context.Context, pctx core.PlanContext, ectx core.ExecutionContext, mediaContext string) (orchestrator.Result, error) {
	f.calls++
	f.lastPlan = pctx
	f.lastExec = ectx
	return f.result, f.err
}

func newTestDispatcher(t *testing.T, orch OrchestratorRunner) *Dispatcher {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &Dispatcher{
		Orchestrator: orch,
		Conversation: store.NewConversationStore(db),
		Users:        store.NewUserConfigStore(db),
		Memory:       store.NewMemoryStore(db),
		Channel:      core.ChannelTelegram,
		WindowLimits: convwindow.DefaultLimits,
	}
}

func TestDispatcher_HandlePersistsBothSidesAndReturnsReply(t *testing.T) {
	orch := &fakeOrchestrator{result: orchestrator.Result{Success: true, Response: "hello back"}}
	d := newTestDispatcher(t, orch)

	reply, err := d.Handle(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "hello back" {
		t.Fatalf("expected orchestrator reply, got %q", reply)
	}

	history, err := d.Conversation.History(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected both turns persisted, got %d", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "hello" {
		t.Errorf("expected first turn to be the inbound message, got %+v", history[0])
	}
	if history[1].Role != "assistant" || history[1].Content != "hello back" {
		t.Errorf("expected second turn to be the reply, got %+v", history[1])
	}
	if history[0].Channel != core.ChannelTelegram {
		t.Errorf("expected messages tagged with the dispatcher's channel, got %q", history[0].Channel)
	}
}

func TestDispatcher_HandleOrchestratorErrorDoesNotPersistReply(t *testing.T) {
	orch := &fakeOrchestrator{err: errors.New("planner exploded")}
	d := newTestDispatcher(t, orch)

	_, err := d.Handle(context.Background(), "u1", "hello")
	if err == nil {
		t.Fatal("expected the orchestrator error to propagate")
	}

	history, err := d.Conversation.History(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected only the inbound message to persist, got %d", len(history))
	}
	if history[0].Role != "user" {
		t.Errorf("expected the surviving turn to be the inbound message, got %+v", history[0])
	}
}

func TestDispatcher_HandleThreadsUserConfigAndFactsIntoContext(t *testing.T) {
	orch := &fakeOrchestrator{result: orchestrator.Result{Success: true, Response: "ok"}}
	d := newTestDispatcher(t, orch)

	if err := d.Users.Set(context.Background(), core.UserConfig{
		Phone: "u1", Name: "Ada", Timezone: "America/New_York", FeatureFlags: map[string]bool{"beta": true},
	}); err != nil {
		t.Fatalf("Users.Set: %v", err)
	}
	if _, err := d.Memory.AddFact(context.Background(), "u1", "likes tea", 1.0, time.Now()); err != nil {
		t.Fatalf("Memory.AddFact: %v", err)
	}

	if _, err := d.Handle(context.Background(), "u1", "what do I like?"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if orch.lastExec.Profile == nil || orch.lastExec.Profile.Name != "Ada" {
		t.Fatalf("expected the user's profile to reach the orchestrator, got %+v", orch.lastExec.Profile)
	}
	if len(orch.lastPlan.Facts) != 1 || orch.lastPlan.Facts[0].Fact != "likes tea" {
		t.Fatalf("expected the stored fact to reach the plan context, got %+v", orch.lastPlan.Facts)
	}
	if orch.lastPlan.UserMessage != "what do I like?" {
		t.Errorf("expected the user message on the plan context, got %q", orch.lastPlan.UserMessage)
	}
}

func TestDispatcher_HandleWindowsHistoryBeforeCallingOrchestrator(t *testing.T) {
	orch := &fakeOrchestrator{result: orchestrator.Result{Success: true, Response: "ok"}}
	d := newTestDispatcher(t, orch)
	d.WindowLimits = convwindow.Limits{MaxAgeHours: 24, MaxMessages: 1, MaxTokens: 4000}

	old := time.Now().Add(-time.Hour)
	if err := d.Conversation.AddMessage(context.Background(), core.ConversationMessage{
		UserID: "u1", Channel: core.ChannelTelegram, Role: "user", Content: "first", CreatedAt: old,
	}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if _, err := d.Handle(context.Background(), "u1", "second"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(orch.lastPlan.History) != 1 {
		t.Fatalf("expected the window to cap history at 1 message, got %d", len(orch.lastPlan.History))
	}
	if orch.lastPlan.History[0].Content != "second" {
		t.Errorf("expected only the most recent message to survive the window, got %q", orch.lastPlan.History[0].Content)
	}
}
