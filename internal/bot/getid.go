package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// GetIDBot is the setup-time variant run when no channel id is configured.
// It answers every message with the chat id it arrived from, and with the
// origin channel's id when the message was forwarded, which is exactly the
// number the operator needs to finish configuration.
type GetIDBot struct {
	api API
	log zerolog.Logger
}

// NewGetIDBot wires the chat-id helper.
func NewGetIDBot(api API, log zerolog.Logger) *GetIDBot {
	return &GetIDBot{api: api, log: log.With().Str("component", "getid").Logger()}
}

// Run consumes updates until the context is cancelled.
func (b *GetIDBot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeout
	updates := b.api.GetUpdatesChan(cfg)
	b.log.Info().Msg("chat-id helper started; configure CHANNEL_CHAT_ID to run the full bot")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.answer(update)
		}
	}
}

func (b *GetIDBot) answer(update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return
	}
	text := fmt.Sprintf("This chat's id is <code>%d</code>.", m.Chat.ID)
	if m.ForwardFromChat != nil {
		text += fmt.Sprintf("\nThe forwarded message came from chat <code>%d</code>.", m.ForwardFromChat.ID)
	}
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat", m.Chat.ID).Msg("chat-id reply failed")
	}
}
