package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs messages instead of sending them. Used when no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "noop_notifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	n.log.Info().Int64("telegram_id", telegramID).Str("text", text).Msg("notify")
	return nil
}

func (n *NoopNotifier) DeleteMessage(ctx context.Context, telegramID int64, messageID int) error {
	n.log.Info().Int64("telegram_id", telegramID).Int("message_id", messageID).Msg("delete message")
	return nil
}
