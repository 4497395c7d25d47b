package gateway

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/adiaconou/hermes/internal/core"
)

// TelegramGateway is a Messenger backed by the Telegram Bot API's long-poll
// update feed, generalizing the teacher's TelegramGateway from a single
// agent.Brain collaborator to the Dispatcher seam.
type TelegramGateway struct {
	Bot        *tgbotapi.BotAPI
	Dispatcher Dispatcher
	Logger     core.Logger

	stop chan struct{}
}

func NewTelegramGateway(token string, dispatcher Dispatcher, logger core.Logger) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	logger.Infof("telegram: authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{Bot: bot, Dispatcher: dispatcher, Logger: logger, stop: make(chan struct{})}, nil
}

func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)
	for {
		select {
		case <-tg.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			tg.handleUpdate(ctx, update)
		}
	}
}

func (tg *TelegramGateway) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	userID := strconv.FormatInt(update.Message.Chat.ID, 10)

	response, err := tg.Dispatcher.Handle(ctx, userID, update.Message.Text)
	if err != nil {
		tg.Logger.Errorf("telegram: dispatching message from %s: %v", userID, err)
		response = "I'm having trouble thinking right now."
	}
	if response == "" {
		return
	}
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, response)
	if _, err := tg.Bot.Send(msg); err != nil {
		tg.Logger.Errorf("telegram: sending reply to %s: %v", userID, err)
	}
}

// Send implements Messenger for unsolicited delivery (job runner, watcher).
func (tg *TelegramGateway) Send(ctx context.Context, userID, text string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat ID %q: %w", userID, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = "Markdown"
	_, err = tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	close(tg.stop)
	tg.Bot.StopReceivingUpdates()
	return nil
}
