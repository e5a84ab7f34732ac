// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"loyalty-bot/internal/models"
)

// ErrNotFound is returned when a user or promo id does not exist.
var ErrNotFound = errors.New("not found")

// PurchaseUpdate describes one purchase. The store credits CashbackSilver
// when the post-purchase lifetime spend reaches Threshold and CashbackBasic
// otherwise, all inside the same statement, so two concurrent purchases for
// one user can never rate off a stale total.
type PurchaseUpdate struct {
	Amount         int64
	CashbackBasic  int64
	CashbackSilver int64
	Threshold      int64
}

// Store is the persistence boundary. Two implementations exist (Postgres
// and SQLite), selected once at startup by configuration. Every method is
// a single atomic statement against the backend.
type Store interface {
	// UpsertUser creates the user or overwrites the phone of an existing
	// one. Bonus points and lifetime spend are never touched here.
	UpsertUser(ctx context.Context, telegramID int64, phone string) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)

	// ApplyPurchase adds the cashback to the balance and the amount to
	// lifetime spend in one statement and returns the updated totals.
	// Returns ErrNotFound for unknown users.
	ApplyPurchase(ctx context.Context, telegramID int64, p PurchaseUpdate) (totalSpent, bonusPoints int64, err error)
	// DeductPoints subtracts amount from the balance only if the balance
	// covers it. Reports whether the deduction happened.
	DeductPoints(ctx context.Context, telegramID int64, amount int64) (bool, error)

	ListPromos(ctx context.Context) ([]models.Promo, error)
	AddPromo(ctx context.Context, text string) (int64, error)
	UpdatePromo(ctx context.Context, id int64, text string) error
	DeletePromo(ctx context.Context, id int64) error

	WeeklyBroadcast(ctx context.Context) (*models.WeeklyBroadcast, error)
	SetWeeklyText(ctx context.Context, text string) error
	SetWeeklyTime(ctx context.Context, dayOfWeek, hour, minute int) error

	Close()
}
