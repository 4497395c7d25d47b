package gateway

import (
	"context"
	"fmt"

	"github.com/adiaconou/hermes/internal/core"
)

// Router fans outbound sends across whichever Messengers are registered,
// keyed by the channel that should carry them. It satisfies both
// jobrunner.Sender and watcher.Sender without either package importing
// this one.
type Router struct {
	messengers map[core.Channel]Messenger
}

func NewRouter() *Router {
	return &Router{messengers: make(map[core.Channel]Messenger)}
}

// Register binds a channel to the Messenger that should carry its
// outbound sends.
func (r *Router) Register(ch core.Channel, m Messenger) {
	r.messengers[ch] = m
}

func (r *Router) Send(ctx context.Context, ch core.Channel, userID, text string) error {
	m, ok := r.messengers[ch]
	if !ok {
		return fmt.Errorf("no messenger registered for channel %q", ch)
	}
	return m.Send(ctx, userID, text)
}
