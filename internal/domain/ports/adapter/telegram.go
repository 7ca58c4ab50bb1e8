package adapter

import "context"

// Notifier delivers user-facing messages. Failures are never fatal to callers.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
	DeleteMessage(ctx context.Context, telegramID int64, messageID int) error
}
