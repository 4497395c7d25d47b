// Package app wires the Conversation Window, Orchestrator, and stores
// together behind the gateway.Dispatcher seam, generalizing the teacher's
// MasterBrain construction in cmd/mishri/main.go into a single reusable
// collaborator cmd/hermes can build once and hand to every channel gateway.
package app

import (
	"context"
	"time"

	"github.com/adiaconou/hermes/internal/convwindow"
	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/orchestrator"
	"github.com/adiaconou/hermes/internal/store"
)

// OrchestratorRunner is the narrow orchestrator.Orchestrator slice
// Dispatcher needs, kept as an interface so tests can substitute a fake
// without driving a real plan/execute/replan cycle.
type OrchestratorRunner interface {
	Handle(ctx context.Context, pctx core.PlanContext, ectx core.ExecutionContext, mediaContext string) (orchestrator.Result, error)
}

// Dispatcher implements gateway.Dispatcher against the orchestrator loop,
// persisting the turn and resolving the acting user's profile/facts first.
type Dispatcher struct {
	Orchestrator OrchestratorRunner
	Conversation *store.ConversationStore
	Users        *store.UserConfigStore
	Memory       *store.MemoryStore
	Channel      core.Channel
	Logger       core.Logger
	WindowLimits convwindow.Limits
}

// Handle runs one full turn for userID: load context, run the orchestrator,
// persist both sides of the exchange, and return the reply text.
func (d *Dispatcher) Handle(ctx context.Context, userID, text string) (string, error) {
	logger := d.loggerOf()
	now := time.Now()

	if err := d.Conversation.AddMessage(ctx, core.ConversationMessage{
		UserID: userID, Channel: d.Channel, Role: "user", Content: text, CreatedAt: now,
	}); err != nil {
		logger.Errorf("app: persisting inbound message for %s: %v", userID, err)
	}

	history, err := d.Conversation.History(ctx, userID, convwindow.DefaultLimits.MaxMessages)
	if err != nil {
		logger.Errorf("app: loading history for %s: %v", userID, err)
	}
	windowed := convwindow.Filter(history, now, d.WindowLimits)

	cfg, _, err := d.Users.Get(ctx, userID)
	if err != nil {
		logger.Errorf("app: loading user config for %s: %v", userID, err)
	}

	facts, err := d.Memory.Facts(ctx, userID)
	if err != nil {
		logger.Errorf("app: loading facts for %s: %v", userID, err)
	}

	pctx := core.PlanContext{
		UserMessage: text,
		History:     windowed,
		Facts:       facts,
		UserConfig:  cfg,
		Phone:       userID,
		Channel:     d.Channel,
		Now:         now,
	}
	ectx := core.ExecutionContext{
		UserID:  userID,
		Channel: d.Channel,
		Profile: &core.UserProfile{Name: cfg.Name, Timezone: cfg.Timezone, FeatureFlags: cfg.FeatureFlags},
		Logger:  logger,
	}

	result, err := d.Orchestrator.Handle(ctx, pctx, ectx, "")
	if err != nil {
		logger.Errorf("app: orchestrator failed for %s: %v", userID, err)
		return "", err
	}

	if err := d.Conversation.AddMessage(ctx, core.ConversationMessage{
		UserID: userID, Channel: d.Channel, Role: "assistant", Content: result.Response, CreatedAt: time.Now(),
	}); err != nil {
		logger.Errorf("app: persisting reply for %s: %v", userID, err)
	}

	return result.Response, nil
}

func (d *Dispatcher) loggerOf() core.Logger {
	if d.Logger == nil {
		return core.NopLogger{}
	}
	return d.Logger
}
