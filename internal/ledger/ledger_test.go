package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"loyalty-bot/internal/models"
	"loyalty-bot/internal/storage"
)

// memStore is an in-memory Store for ledger tests.
type memStore struct {
	users  map[int64]*models.User
	promos map[int64]string
	nextID int64
	weekly models.WeeklyBroadcast
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[int64]*models.User),
		promos: make(map[int64]string),
		nextID: 1,
		weekly: models.WeeklyBroadcast{Hour: 12},
	}
}

func (m *memStore) UpsertUser(_ context.Context, telegramID int64, phone string) error {
	if u, ok := m.users[telegramID]; ok {
		u.Phone = phone
		return nil
	}
	m.users[telegramID] = &models.User{TelegramID: telegramID, Phone: phone, CreatedAt: time.Now()}
	return nil
}

func (m *memStore) GetUser(_ context.Context, telegramID int64) (*models.User, error) {
	u, ok := m.users[telegramID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) ListUserIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) ApplyPurchase(_ context.Context, telegramID int64, p storage.PurchaseUpdate) (int64, int64, error) {
	u, ok := m.users[telegramID]
	if !ok {
		return 0, 0, storage.ErrNotFound
	}
	cashback := p.CashbackBasic
	if u.TotalSpent+p.Amount >= p.Threshold {
		cashback = p.CashbackSilver
	}
	u.TotalSpent += p.Amount
	u.BonusPoints += cashback
	return u.TotalSpent, u.BonusPoints, nil
}

func (m *memStore) DeductPoints(_ context.Context, telegramID int64, amount int64) (bool, error) {
	u, ok := m.users[telegramID]
	if !ok || u.BonusPoints < amount {
		return false, nil
	}
	u.BonusPoints -= amount
	return true, nil
}

func (m *memStore) ListPromos(_ context.Context) ([]models.Promo, error) { return nil, nil }

func (m *memStore) AddPromo(_ context.Context, text string) (int64, error) {
	id := m.nextID
	m.nextID++
	m.promos[id] = text
	return id, nil
}

func (m *memStore) UpdatePromo(_ context.Context, id int64, text string) error {
	if _, ok := m.promos[id]; !ok {
		return storage.ErrNotFound
	}
	m.promos[id] = text
	return nil
}

func (m *memStore) DeletePromo(_ context.Context, id int64) error {
	if _, ok := m.promos[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.promos, id)
	return nil
}

func (m *memStore) WeeklyBroadcast(_ context.Context) (*models.WeeklyBroadcast, error) {
	copied := m.weekly
	return &copied, nil
}

func (m *memStore) SetWeeklyText(_ context.Context, text string) error {
	m.weekly.Text = text
	return nil
}

func (m *memStore) SetWeeklyTime(_ context.Context, day, hour, minute int) error {
	m.weekly.DayOfWeek, m.weekly.Hour, m.weekly.Minute = day, hour, minute
	return nil
}

func (m *memStore) Close() {}

func seedUser(t *testing.T, store *memStore, id int64, phone string, points, spent int64) {
	t.Helper()
	store.users[id] = &models.User{TelegramID: id, Phone: phone, BonusPoints: points, TotalSpent: spent}
}

func TestRecordPurchaseBasicRate(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 0, 0)
	l := New(store)

	p, err := l.RecordPurchase(context.Background(), 1, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cashback != 50 {
		t.Fatalf("expected cashback 50, got %d", p.Cashback)
	}
	if p.Tier != TierBasic {
		t.Fatalf("expected basic tier, got %s", p.Tier)
	}
}

func TestRecordPurchaseCrossesThreshold(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 100, 25000)
	l := New(store)

	p, err := l.RecordPurchase(context.Background(), 1, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TotalSpent != 35000 {
		t.Fatalf("expected total spent 35000, got %d", p.TotalSpent)
	}
	if p.Cashback != 1000 {
		t.Fatalf("expected cashback 1000, got %d", p.Cashback)
	}
	if p.BonusPoints != 1100 {
		t.Fatalf("expected balance 1100, got %d", p.BonusPoints)
	}
	if p.Tier != TierSilver {
		t.Fatalf("expected silver tier, got %s", p.Tier)
	}
}

func TestRecordPurchaseExactlyAtThreshold(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 0, 29000)
	l := New(store)

	p, err := l.RecordPurchase(context.Background(), 1, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Post-purchase total hits the threshold, so the whole purchase earns 10%.
	if p.Cashback != 100 {
		t.Fatalf("expected cashback 100, got %d", p.Cashback)
	}
}

func TestRecordPurchaseFloorsCashback(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 0, 0)
	l := New(store)

	p, err := l.RecordPurchase(context.Background(), 1, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cashback != 4 { // floor(99 * 0.05)
		t.Fatalf("expected cashback 4, got %d", p.Cashback)
	}
}

func TestRecordPurchaseUnknownUser(t *testing.T) {
	l := New(newMemStore())

	_, err := l.RecordPurchase(context.Background(), 42, 1000)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordPurchaseRejectsNonPositiveAmount(t *testing.T) {
	l := New(newMemStore())

	for _, amount := range []int64{0, -100} {
		if _, err := l.RecordPurchase(context.Background(), 1, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRedeemOverBalanceDeclined(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 300, 5000)
	l := New(store)

	r, err := l.Redeem(context.Background(), 1, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Declined {
		t.Fatal("expected redemption to be declined")
	}
	if r.BonusPoints != 300 {
		t.Fatalf("expected balance unchanged at 300, got %d", r.BonusPoints)
	}
}

func TestRedeemSuccess(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 300, 5000)
	l := New(store)

	r, err := l.Redeem(context.Background(), 1, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Declined {
		t.Fatal("expected redemption to succeed")
	}
	if r.BonusPoints != 100 {
		t.Fatalf("expected balance 100, got %d", r.BonusPoints)
	}
}

func TestRedeemUnregisteredDeclined(t *testing.T) {
	l := New(newMemStore())

	r, err := l.Redeem(context.Background(), 42, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Declined {
		t.Fatal("expected redemption by unregistered user to be declined")
	}
}

func TestReRegisterKeepsBalances(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 450, 12000)
	l := New(store)

	if err := l.Register(context.Background(), 1, "+380671234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := l.Status(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Phone != "+380671234567" {
		t.Fatalf("expected new phone stored, got %q", st.Phone)
	}
	if st.BonusPoints != 450 || st.TotalSpent != 12000 {
		t.Fatalf("expected balances preserved, got points=%d spent=%d", st.BonusPoints, st.TotalSpent)
	}
}

func TestStatusReportsTierProgress(t *testing.T) {
	store := newMemStore()
	seedUser(t, store, 1, "+380501112233", 0, 18000)
	l := New(store)

	st, err := l.Status(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Tier != TierBasic {
		t.Fatalf("expected basic tier, got %s", st.Tier)
	}
	if st.ToNextTier != 12000 {
		t.Fatalf("expected 12000 to next tier, got %d", st.ToNextTier)
	}

	seedUser(t, store, 2, "+380501112234", 0, 31000)
	st, err = l.Status(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Tier != TierSilver || st.ToNextTier != 0 {
		t.Fatalf("expected silver tier with no remaining spend, got %s/%d", st.Tier, st.ToNextTier)
	}
}

func TestStatusUnknownUser(t *testing.T) {
	l := New(newMemStore())

	if _, err := l.Status(context.Background(), 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
