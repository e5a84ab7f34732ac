package storage

import (
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// purchase builds a PurchaseUpdate at the production rates.
func purchase(amount int64) PurchaseUpdate {
	return PurchaseUpdate{
		Amount:         amount,
		CashbackBasic:  amount * 5 / 100,
		CashbackSilver: amount * 10 / 100,
		Threshold:      30000,
	}
}

func TestUpsertUserOverwritesPhoneOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, 1, "+380501112233"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := s.ApplyPurchase(ctx, 1, purchase(5000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-registration with a new phone keeps the balances.
	if err := s.UpsertUser(ctx, 1, "+380671234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := s.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Phone != "+380671234567" {
		t.Fatalf("expected new phone, got %q", u.Phone)
	}
	if u.BonusPoints != 250 || u.TotalSpent != 5000 {
		t.Fatalf("expected balances preserved, got points=%d spent=%d", u.BonusPoints, u.TotalSpent)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetUser(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyPurchaseUnknownUser(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.ApplyPurchase(context.Background(), 42, purchase(1000)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyPurchaseRatesPostPurchaseTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, 1, "+380501112233"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := s.ApplyPurchase(ctx, 1, purchase(29000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The crossing purchase earns the silver cashback, chosen inside the
	// statement rather than from a prior read.
	total, bonus, err := s.ApplyPurchase(ctx, 1, purchase(2000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 31000 {
		t.Fatalf("expected total spent 31000, got %d", total)
	}
	if bonus != 1450+200 {
		t.Fatalf("expected balance 1650, got %d", bonus)
	}
}

func TestDeductPointsGuardsBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, 1, "+380501112233"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := s.ApplyPurchase(ctx, 1, purchase(2000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err := s.DeductPoints(ctx, 1, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected deduction over balance to be refused")
	}

	u, err := s.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.BonusPoints != 100 {
		t.Fatalf("expected balance unchanged at 100, got %d", u.BonusPoints)
	}

	ok, err = s.DeductPoints(ctx, 1, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected covered deduction to succeed")
	}
}

func TestPromoCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.AddPromo(ctx, "Дві кави за ціною однієї")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.AddPromo(ctx, "Знижка 20% на кальяни по середах")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second <= first {
		t.Fatalf("expected ascending ids, got %d then %d", first, second)
	}

	if err := s.UpdatePromo(ctx, first, "Три кави за ціною двох"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	promos, err := s.ListPromos(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promos) != 2 {
		t.Fatalf("expected 2 promos, got %d", len(promos))
	}
	if promos[0].ID != first || promos[0].Text != "Три кави за ціною двох" {
		t.Fatalf("unexpected first promo: %+v", promos[0])
	}

	if err := s.DeletePromo(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	promos, err = s.ListPromos(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promos) != 1 || promos[0].ID != second {
		t.Fatalf("expected only promo %d left, got %+v", second, promos)
	}
}

func TestPromoMissingIDReported(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpdatePromo(ctx, 99, "text"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeletePromo(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	promos, err := s.ListPromos(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(promos) != 0 {
		t.Fatalf("expected empty promo list, got %d entries", len(promos))
	}
}

func TestWeeklyBroadcastSingleton(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wb, err := s.WeeklyBroadcast(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wb.Text != "" {
		t.Fatalf("expected unconfigured text, got %q", wb.Text)
	}
	if wb.DayOfWeek != 0 || wb.Hour != 12 || wb.Minute != 0 {
		t.Fatalf("unexpected default send time: %+v", wb)
	}

	if err := s.SetWeeklyText(ctx, "Щотижневі новини закладу"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetWeeklyTime(ctx, 5, 18, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wb, err = s.WeeklyBroadcast(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wb.Text != "Щотижневі новини закладу" {
		t.Fatalf("unexpected text: %q", wb.Text)
	}
	if wb.DayOfWeek != 5 || wb.Hour != 18 || wb.Minute != 0 {
		t.Fatalf("unexpected send time: %+v", wb)
	}
}

func TestListUserIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		if err := s.UpsertUser(ctx, id, "+38050000000"+string(rune('0'+id))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ids, err := s.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
