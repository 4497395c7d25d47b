package gateway

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/adiaconou/hermes/internal/core"
)

// DiscordGateway is a Messenger backed by discordgo's websocket session,
// mirroring TelegramGateway's shape against a different wire protocol.
type DiscordGateway struct {
	Session    *discordgo.Session
	Dispatcher Dispatcher
	Logger     core.Logger
}

func NewDiscordGateway(token string, dispatcher Dispatcher, logger core.Logger) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	dg := &DiscordGateway{Session: session, Dispatcher: dispatcher, Logger: logger}
	session.AddHandler(dg.onMessageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	return dg, nil
}

func (dg *DiscordGateway) Start(ctx context.Context) error {
	if err := dg.Session.Open(); err != nil {
		return err
	}
	<-ctx.Done()
	return dg.Session.Close()
}

func (dg *DiscordGateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot {
		return
	}
	ctx := context.Background()
	response, err := dg.Dispatcher.Handle(ctx, m.ChannelID, m.Content)
	if err != nil {
		dg.Logger.Errorf("discord: dispatching message from %s: %v", m.ChannelID, err)
		response = "I'm having trouble thinking right now."
	}
	if response == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, response); err != nil {
		dg.Logger.Errorf("discord: sending reply to channel %s: %v", m.ChannelID, err)
	}
}

// Send implements Messenger. userID here is the Discord channel ID the
// reply should land in, since discordgo addresses messages by channel
// rather than by user.
func (dg *DiscordGateway) Send(ctx context.Context, userID, text string) error {
	_, err := dg.Session.ChannelMessageSend(userID, text)
	return err
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
