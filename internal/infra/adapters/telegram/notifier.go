// File: internal/infra/adapters/telegram/notifier.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vpn-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*BotNotifier)(nil)

// BotNotifier sends payment notices through the Telegram Bot API. It only
// sends; update polling belongs to the bot process.
type BotNotifier struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewBotNotifier(token string, logger *zerolog.Logger) (*BotNotifier, error) {
	if token == "" {
		return nil, errors.New("bot token empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBotNotifier(bot, logger), nil
}

// NewBotNotifierWithEndpoint targets a custom Bot API server, e.g. a local one.
// endpoint uses the tgbotapi format "https://host/bot%s/%s".
func NewBotNotifierWithEndpoint(token, endpoint string, client *http.Client, logger *zerolog.Logger) (*BotNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return newBotNotifier(bot, logger), nil
}

func newBotNotifier(bot *tgbotapi.BotAPI, logger *zerolog.Logger) *BotNotifier {
	l := logger.With().Str("component", "telegram_notifier").Str("bot", bot.Self.UserName).Logger()
	return &BotNotifier{bot: bot, log: &l}
}

func (n *BotNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(telegramID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", telegramID, err)
	}
	return nil
}

func (n *BotNotifier) DeleteMessage(ctx context.Context, telegramID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Request(tgbotapi.NewDeleteMessage(telegramID, messageID)); err != nil {
		return fmt.Errorf("telegram delete %d/%d: %w", telegramID, messageID, err)
	}
	return nil
}
