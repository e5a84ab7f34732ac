// internal/models/models.go
package models

import (
	"time"
)

// User is a registered loyalty-program member. TelegramID doubles as the
// chat id for direct sends.
type User struct {
	TelegramID  int64     `json:"telegram_id"`
	Phone       string    `json:"phone"`
	BonusPoints int64     `json:"bonus_points"`
	TotalSpent  int64     `json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

type Promo struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// WeeklyBroadcast is the singleton scheduled-broadcast config. An empty
// Text means the broadcast has not been configured yet.
type WeeklyBroadcast struct {
	Text      string `json:"text"`
	DayOfWeek int    `json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
}
