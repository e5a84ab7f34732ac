package broadcast

import (
	"context"
	"errors"
	"testing"

	"loyalty-bot/internal/models"
	"loyalty-bot/pkg/logger"
)

type stubStore struct {
	ids    []int64
	weekly models.WeeklyBroadcast
	err    error
}

func (s *stubStore) ListUserIDs(_ context.Context) ([]int64, error) {
	return s.ids, s.err
}

func (s *stubStore) WeeklyBroadcast(_ context.Context) (*models.WeeklyBroadcast, error) {
	if s.err != nil {
		return nil, s.err
	}
	copied := s.weekly
	return &copied, nil
}

type stubSender struct {
	failFor  map[int64]bool
	received map[int64][]string
}

func newStubSender(failFor ...int64) *stubSender {
	fail := make(map[int64]bool, len(failFor))
	for _, id := range failFor {
		fail[id] = true
	}
	return &stubSender{failFor: fail, received: make(map[int64][]string)}
}

func (s *stubSender) SendText(chatID int64, text string) error {
	if s.failFor[chatID] {
		return errors.New("blocked by user")
	}
	s.received[chatID] = append(s.received[chatID], text)
	return nil
}

func TestSendToAllCountsFailuresIndependently(t *testing.T) {
	store := &stubStore{ids: []int64{1, 2, 3}}
	sender := newStubSender(2)
	b := New(store, sender, logger.NewDevelopment())

	sent, failed, err := b.SendToAll(context.Background(), "привіт")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 2 || failed != 1 {
		t.Fatalf("expected (sent=2, failed=1), got (%d, %d)", sent, failed)
	}
	for _, id := range []int64{1, 3} {
		if len(sender.received[id]) != 1 || sender.received[id][0] != "привіт" {
			t.Fatalf("expected user %d to receive the message, got %v", id, sender.received[id])
		}
	}
	if len(sender.received[2]) != 0 {
		t.Fatalf("expected user 2 to receive nothing, got %v", sender.received[2])
	}
}

func TestSendToAllNoRecipients(t *testing.T) {
	b := New(&stubStore{}, newStubSender(), logger.NewDevelopment())

	sent, failed, err := b.SendToAll(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 || failed != 0 {
		t.Fatalf("expected (0, 0), got (%d, %d)", sent, failed)
	}
}

func TestSendToAllStoreError(t *testing.T) {
	b := New(&stubStore{err: errors.New("connection lost")}, newStubSender(), logger.NewDevelopment())

	if _, _, err := b.SendToAll(context.Background(), "text"); err == nil {
		t.Fatal("expected error when recipients cannot be loaded")
	}
}

func TestSendWeeklyNoopsWithoutText(t *testing.T) {
	store := &stubStore{ids: []int64{1, 2}}
	sender := newStubSender()
	b := New(store, sender, logger.NewDevelopment())

	b.SendWeekly(context.Background())

	if len(sender.received) != 0 {
		t.Fatalf("expected no sends without configured text, got %v", sender.received)
	}
}

func TestSendWeeklyDeliversStoredText(t *testing.T) {
	store := &stubStore{
		ids:    []int64{1, 2},
		weekly: models.WeeklyBroadcast{Text: "Щотижневі новини", DayOfWeek: 5, Hour: 18},
	}
	sender := newStubSender()
	b := New(store, sender, logger.NewDevelopment())

	b.SendWeekly(context.Background())

	for _, id := range []int64{1, 2} {
		if len(sender.received[id]) != 1 || sender.received[id][0] != "Щотижневі новини" {
			t.Fatalf("expected user %d to receive the weekly text, got %v", id, sender.received[id])
		}
	}
}

func TestRescheduleRejectsBadSpec(t *testing.T) {
	store := &stubStore{weekly: models.WeeklyBroadcast{DayOfWeek: 0, Hour: 12}}
	s := NewScheduler(New(store, newStubSender(), logger.NewDevelopment()), store, logger.NewDevelopment())

	if err := s.Reschedule(5, 18, 0); err != nil {
		t.Fatalf("unexpected error for valid time: %v", err)
	}
	if err := s.Reschedule(9, 18, 0); err == nil {
		t.Fatal("expected error for day of week out of range")
	}
}
