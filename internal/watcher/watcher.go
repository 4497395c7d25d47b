// Package watcher implements the Background Watcher: a poller that syncs
// each watcher-enabled user's inbox delta, classifies new items against
// the filesystem skill registry, and dispatches matching skills through
// the shared executor, generalizing the teacher's ticker-poll idiom
// (internal/agent/scheduler.go) to multi-user inbox sync with per-user
// notification throttling.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/adiaconou/hermes/internal/core"
	"github.com/adiaconou/hermes/internal/observability"
	"github.com/adiaconou/hermes/internal/poller"
	"github.com/adiaconou/hermes/internal/skillregistry"
	"github.com/adiaconou/hermes/internal/toolsurface"
)

// InboxItem is one new item produced by a sync source for a single user.
type InboxItem struct {
	ID        string
	MatchText string // text matched against skill match-hints
}

// SyncSource fetches new items since a user's last checkpoint and returns
// the advanced checkpoint to persist.
type SyncSource interface {
	Delta(ctx context.Context, userID, checkpoint string) (items []InboxItem, newCheckpoint string, err error)
}

// UserStore is the persistence seam the watcher reads watcher-enabled
// users from and writes advanced checkpoints back to.
type UserStore interface {
	// WatcherUsers returns users with the watcher flag set and credentials present.
	WatcherUsers(ctx context.Context) ([]core.UserConfig, error)
	SaveCheckpoint(ctx context.Context, userID, checkpoint string) error
}

// Sender delivers a merged notification for one matched item to its user.
type Sender interface {
	Send(ctx context.Context, ch core.Channel, userID, text string) error
}

// Watcher ties a UserStore, a SyncSource, the Skill Registry, and a Sender
// together behind a single Poller instance.
type Watcher struct {
	Users   UserStore
	Sync    SyncSource
	Skills  *skillregistry.Registry
	Surface *toolsurface.Surface
	Sender  Sender
	Logger  core.Logger

	throttle *throttleTracker
	poller   *poller.Poller
}

// New returns a Watcher that ticks every interval (DefaultInterval if
// zero) and allows at most maxNotificationsPerHour sends per user
// (DefaultMaxNotificationsPerHour if zero or negative).
func New(users UserStore, sync SyncSource, skills *skillregistry.Registry, surface *toolsurface.Surface, sender Sender, logger core.Logger, interval time.Duration, maxNotificationsPerHour int) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	w := &Watcher{
		Users: users, Sync: sync, Skills: skills, Surface: surface, Sender: sender, Logger: logger,
		throttle: newThrottleTracker(maxNotificationsPerHour),
	}
	w.poller = poller.New(w.tick, interval, logger)
	return w
}

// Start begins polling for inbound items.
func (w *Watcher) Start(ctx context.Context) { w.poller.Start(ctx) }

// Stop halts polling and awaits any in-flight tick.
func (w *Watcher) Stop() { w.poller.Stop() }

// IsRunning reports whether the watcher's poller loop is active.
func (w *Watcher) IsRunning() bool { return w.poller.IsRunning() }

func (w *Watcher) tick(ctx context.Context) {
	users, err := w.Users.WatcherUsers(ctx)
	if err != nil {
		w.Logger.Errorf("watcher: listing watcher-enabled users: %v", err)
		return
	}
	now := time.Now()
	for _, user := range users {
		w.processUser(ctx, user, now)
	}
}

// processUser syncs and dispatches for one user. Any error here is logged
// and the watcher moves on to the next user, per spec.md §4.12 step 3.
func (w *Watcher) processUser(ctx context.Context, user core.UserConfig, now time.Time) {
	observability.SetStatus(observability.RoleSlave, fmt.Sprintf("Watching %s", user.Phone))
	defer observability.SetStatus(observability.RoleIdle, "")

	items, checkpoint, err := w.Sync.Delta(ctx, user.Phone, user.WatcherCheckpoint)
	if err != nil {
		w.Logger.Errorf("watcher: syncing for user %s: %v", user.Phone, err)
		return
	}

	for _, item := range items {
		w.processItem(ctx, user, item, now)
	}

	if checkpoint != "" && checkpoint != user.WatcherCheckpoint {
		if err := w.Users.SaveCheckpoint(ctx, user.Phone, checkpoint); err != nil {
			w.Logger.Errorf("watcher: saving checkpoint for user %s: %v", user.Phone, err)
		}
	}
}

// processItem matches one item against the skill registry, executes the
// winning skill, and sends at most one notification for it, respecting
// the user's hourly throttle, per spec.md §4.12 steps 2.b-2.d.
func (w *Watcher) processItem(ctx context.Context, user core.UserConfig, item InboxItem, now time.Time) {
	skill := w.Skills.MatchForMessage(item.MatchText, core.ChannelEmail)
	if skill == nil {
		return
	}

	observability.SetStatus(observability.RoleSlave, fmt.Sprintf("Skill %s for %s", skill.Name, user.Phone))

	ectx := core.ExecutionContext{UserID: user.Phone, Channel: core.ChannelEmail, Logger: w.Logger}
	result := w.Skills.ExecuteByName(ctx, w.Surface, skill.Name, item.MatchText, ectx)
	if !result.Success {
		w.Logger.Warnf("watcher: skill %q failed for user %s item %s: %s", skill.Name, user.Phone, item.ID, result.Error)
		return
	}

	text, ok := result.Output.(string)
	if !ok || text == "" {
		return
	}

	if !w.throttle.allow(user.Phone, now) {
		w.Logger.Infof("watcher: throttled notification for user %s (item %s)", user.Phone, item.ID)
		return
	}
	if err := w.Sender.Send(ctx, core.ChannelEmail, user.Phone, text); err != nil {
		w.Logger.Errorf("watcher: sending notification to user %s: %v", user.Phone, err)
	}
}
