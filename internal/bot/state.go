package bot

import (
	"context"
	"sync"
	"time"
)

// State names the admin conversation steps. Every Awaiting* state consumes
// exactly one input before moving on or falling back to idle.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingBroadcastText State = "awaiting_broadcast_text"
	StateAwaitingWeeklyText    State = "awaiting_weekly_text"
	StateAwaitingWeeklyTime    State = "awaiting_weekly_time"
	StateAwaitingPromoMenu     State = "awaiting_promo_menu_choice"
	StateAwaitingNewPromoText  State = "awaiting_new_promo_text"
	StateAwaitingEditPromoID   State = "awaiting_edit_promo_id"
	StateAwaitingEditPromoText State = "awaiting_edit_promo_text"
	StateAwaitingDeletePromoID State = "awaiting_delete_promo_id"
)

// Session is one admin's conversational state plus the data the current
// flow carries between steps.
type Session struct {
	State       State
	EditPromoID int64
	touched     time.Time
}

// SessionManager keeps per-admin sessions in memory. Sessions are lost on
// restart, which is fine: the admin just re-enters the menu. Idle sessions
// older than the TTL are swept so an abandoned dialogue cannot swallow an
// unrelated message weeks later.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
	}
}

// Get returns a copy of the user's session, or an idle one.
func (m *SessionManager) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{State: StateIdle}
	}
	if m.ttl > 0 && time.Since(s.touched) > m.ttl {
		return Session{State: StateIdle}
	}
	return *s
}

// Set stores the session and refreshes its idle timer.
func (m *SessionManager) Set(userID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.touched = time.Now()
	m.sessions[userID] = &s
}

func (m *SessionManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// sweep drops sessions idle longer than the TTL as of now.
func (m *SessionManager) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		if now.Sub(s.touched) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// StartJanitor sweeps expired sessions until ctx is cancelled.
func (m *SessionManager) StartJanitor(ctx context.Context) {
	if m.ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.ttl / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.sweep(now)
			}
		}
	}()
}
