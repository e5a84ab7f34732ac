package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"loyalty-bot/pkg/logger"
)

// Scheduler fires the weekly broadcast at the time persisted in the store.
// Changing the time through Reschedule takes effect immediately, without a
// process restart.
type Scheduler struct {
	cron        *cron.Cron
	broadcaster *Broadcaster
	store       Store
	logger      *logger.Logger

	mu    sync.Mutex
	entry cron.EntryID
}

func NewScheduler(broadcaster *Broadcaster, store Store, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		broadcaster: broadcaster,
		store:       store,
		logger:      logger,
	}
}

// Start reads the persisted send time and begins ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	wb, err := s.store.WeeklyBroadcast(ctx)
	if err != nil {
		return fmt.Errorf("failed to load weekly send time: %w", err)
	}

	if err := s.Reschedule(wb.DayOfWeek, wb.Hour, wb.Minute); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Weekly broadcast scheduler started",
		"day_of_week", wb.DayOfWeek, "hour", wb.Hour, "minute", wb.Minute)
	return nil
}

// Reschedule replaces the cron entry with one for the given send time.
// Day of week follows cron convention: 0 = Sunday.
func (s *Scheduler) Reschedule(dayOfWeek, hour, minute int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := fmt.Sprintf("%d %d * * %d", minute, hour, dayOfWeek)
	entry, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return fmt.Errorf("failed to schedule weekly broadcast: %w", err)
	}

	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = entry
	return nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("Weekly broadcast tick")
	s.broadcaster.SendWeekly(ctx)
}

// Stop halts the cron loop. Returns once a running fan-out has finished.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
