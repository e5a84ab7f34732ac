// internal/broadcast/broadcast.go
package broadcast

import (
	"context"
	"fmt"

	"loyalty-bot/internal/models"
	"loyalty-bot/pkg/logger"
)

// Sender delivers one message to one chat. The Telegram bot satisfies it.
type Sender interface {
	SendText(chatID int64, text string) error
}

// Store is the slice of the persistence layer the broadcast path needs.
// storage.Store satisfies it.
type Store interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	WeeklyBroadcast(ctx context.Context) (*models.WeeklyBroadcast, error)
}

// Broadcaster fans a message out to every registered user.
type Broadcaster struct {
	store  Store
	sender Sender
	logger *logger.Logger
}

func New(store Store, sender Sender, logger *logger.Logger) *Broadcaster {
	return &Broadcaster{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// SendToAll attempts a direct send to every registered user. A failed
// delivery is counted and logged, never retried, and never stops the rest
// of the batch.
func (b *Broadcaster) SendToAll(ctx context.Context, text string) (sent, failed int, err error) {
	ids, err := b.store.ListUserIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load recipients: %w", err)
	}

	for _, id := range ids {
		if err := b.sender.SendText(id, text); err != nil {
			b.logger.Error("Failed to deliver broadcast", "chat_id", id, "error", err)
			failed++
			continue
		}
		sent++
	}

	b.logger.Info("Broadcast finished", "sent", sent, "failed", failed)
	return sent, failed, nil
}

// SendWeekly delivers the stored weekly broadcast. It is a silent no-op
// when no text has been configured yet.
func (b *Broadcaster) SendWeekly(ctx context.Context) {
	wb, err := b.store.WeeklyBroadcast(ctx)
	if err != nil {
		b.logger.Error("Failed to load weekly broadcast config", "error", err)
		return
	}
	if wb.Text == "" {
		return
	}

	if _, _, err := b.SendToAll(ctx, wb.Text); err != nil {
		b.logger.Error("Weekly broadcast failed", "error", err)
	}
}
