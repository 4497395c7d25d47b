// Package gateway adapts inbound channel traffic (Telegram, Discord, and
// whatever else is wired in cmd/hermes) into calls against a shared
// Dispatcher, and carries outbound delivery back out over the same
// channel the message arrived on.
package gateway

import "context"

// Dispatcher is the orchestrator-facing seam a gateway calls into for
// every inbound message it receives.
type Dispatcher interface {
	Handle(ctx context.Context, userID, text string) (string, error)
}

// Messenger is one channel adapter (Telegram, Discord, SMS, ...).
type Messenger interface {
	// Start begins the inbound listening loop. It blocks until ctx is done;
	// TelegramGateway also returns once Stop is called.
	Start(ctx context.Context) error
	// Send delivers text to userID over this channel, independent of any
	// inbound conversation — used by the job runner and the watcher for
	// unsolicited output.
	Send(ctx context.Context, userID, text string) error
	// Stop gracefully shuts down the gateway.
	Stop() error
}
