// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"

	"loyalty-bot/internal/storage"
)

// ErrInvalidAmount is returned for zero or negative purchase/redeem amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// TierThreshold is the lifetime spend at which the cashback rate doubles.
const TierThreshold = 30000

const (
	rateBasicPct  = 5
	rateSilverPct = 10
)

type Tier string

const (
	TierBasic  Tier = "basic"
	TierSilver Tier = "silver"
)

func TierFor(totalSpent int64) Tier {
	if totalSpent >= TierThreshold {
		return TierSilver
	}
	return TierBasic
}

// ratePct returns the cashback percentage for a given lifetime spend.
func ratePct(totalSpent int64) int64 {
	if totalSpent >= TierThreshold {
		return rateSilverPct
	}
	return rateBasicPct
}

// Ledger owns the bonus-point bookkeeping on top of the store.
type Ledger struct {
	store storage.Store
}

func New(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// Register upserts the user's phone. Re-registering overwrites the phone
// and leaves bonus points and lifetime spend untouched.
func (l *Ledger) Register(ctx context.Context, telegramID int64, phone string) error {
	if phone == "" {
		return errors.New("phone is required")
	}
	return l.store.UpsertUser(ctx, telegramID, phone)
}

type Purchase struct {
	Cashback    int64
	BonusPoints int64
	TotalSpent  int64
	Tier        Tier
}

// RecordPurchase accrues cashback for a purchase. The rate is looked up on
// the post-purchase lifetime spend, so a purchase that crosses the tier
// threshold earns the higher rate on itself. The store picks the rate
// inside the update, so a stale read can never misrate a purchase.
func (l *Ledger) RecordPurchase(ctx context.Context, telegramID int64, amount int64) (*Purchase, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	total, bonus, err := l.store.ApplyPurchase(ctx, telegramID, storage.PurchaseUpdate{
		Amount:         amount,
		CashbackBasic:  amount * rateBasicPct / 100,
		CashbackSilver: amount * rateSilverPct / 100,
		Threshold:      TierThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	return &Purchase{
		Cashback:    amount * ratePct(total) / 100,
		BonusPoints: bonus,
		TotalSpent:  total,
		Tier:        TierFor(total),
	}, nil
}

type Redemption struct {
	Declined    bool
	BonusPoints int64
}

// Redeem subtracts amount from the balance. A redemption that the balance
// cannot cover, or one by an unregistered user, is declined rather than
// treated as an error.
func (l *Ledger) Redeem(ctx context.Context, telegramID int64, amount int64) (*Redemption, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ok, err := l.store.DeductPoints(ctx, telegramID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem points: %w", err)
	}

	user, err := l.store.GetUser(ctx, telegramID)
	if errors.Is(err, storage.ErrNotFound) {
		return &Redemption{Declined: true}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Redemption{Declined: !ok, BonusPoints: user.BonusPoints}, nil
}

type Status struct {
	Phone       string
	BonusPoints int64
	TotalSpent  int64
	Tier        Tier
	ToNextTier  int64 // remaining spend until the silver rate; 0 once reached
}

func (l *Ledger) Status(ctx context.Context, telegramID int64) (*Status, error) {
	user, err := l.store.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	remaining := TierThreshold - user.TotalSpent
	if remaining < 0 {
		remaining = 0
	}

	return &Status{
		Phone:       user.Phone,
		BonusPoints: user.BonusPoints,
		TotalSpent:  user.TotalSpent,
		Tier:        TierFor(user.TotalSpent),
		ToNextTier:  remaining,
	}, nil
}
