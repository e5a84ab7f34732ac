package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"loyalty-bot/internal/models"
)

// SQLite is the file-backed store used for small single-node deployments.
// The driver is pure Go, so the binary stays cgo-free.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The driver serializes access through a single connection; more would
	// only trade lock errors for queueing.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			phone TEXT NOT NULL,
			bonus_points INTEGER NOT NULL DEFAULT 0,
			total_spent INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS promos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_broadcast (
			id INTEGER PRIMARY KEY,
			text TEXT,
			day_of_week INTEGER NOT NULL DEFAULT 0,
			hour INTEGER NOT NULL DEFAULT 12,
			minute INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT INTO weekly_broadcast (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *SQLite) UpsertUser(ctx context.Context, telegramID int64, phone string) error {
	query := `
        INSERT INTO users (telegram_id, phone)
        VALUES (?, ?)
        ON CONFLICT (telegram_id) DO UPDATE
        SET phone = excluded.phone
    `

	_, err := s.db.ExecContext(ctx, query, telegramID, phone)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *SQLite) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
        SELECT telegram_id, phone, bonus_points, total_spent, created_at
        FROM users
        WHERE telegram_id = ?
    `

	var user models.User
	err := s.db.QueryRowContext(ctx, query, telegramID).Scan(
		&user.TelegramID, &user.Phone, &user.BonusPoints, &user.TotalSpent, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (s *SQLite) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT telegram_id FROM users ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) ApplyPurchase(ctx context.Context, telegramID int64, p PurchaseUpdate) (int64, int64, error) {
	// total_spent on the right-hand side is the pre-update value, so the
	// CASE rates the purchase on the post-purchase total.
	query := `
        UPDATE users
        SET bonus_points = bonus_points + CASE WHEN total_spent + ? >= ? THEN ? ELSE ? END,
            total_spent = total_spent + ?
        WHERE telegram_id = ?
        RETURNING total_spent, bonus_points
    `

	var total, bonus int64
	err := s.db.QueryRowContext(ctx, query,
		p.Amount, p.Threshold, p.CashbackSilver, p.CashbackBasic, p.Amount, telegramID,
	).Scan(&total, &bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to apply purchase: %w", err)
	}
	return total, bonus, nil
}

func (s *SQLite) DeductPoints(ctx context.Context, telegramID int64, amount int64) (bool, error) {
	query := `
        UPDATE users
        SET bonus_points = bonus_points - ?
        WHERE telegram_id = ? AND bonus_points >= ?
    `

	res, err := s.db.ExecContext(ctx, query, amount, telegramID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to deduct points: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to deduct points: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLite) ListPromos(ctx context.Context) ([]models.Promo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, created_at FROM promos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list promos: %w", err)
	}
	defer rows.Close()

	var promos []models.Promo
	for rows.Next() {
		var p models.Promo
		if err := rows.Scan(&p.ID, &p.Text, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan promo: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func (s *SQLite) AddPromo(ctx context.Context, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO promos (text) VALUES (?)`, text)
	if err != nil {
		return 0, fmt.Errorf("failed to add promo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to add promo: %w", err)
	}
	return id, nil
}

func (s *SQLite) UpdatePromo(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE promos SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("failed to update promo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update promo: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeletePromo(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM promos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete promo: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) WeeklyBroadcast(ctx context.Context) (*models.WeeklyBroadcast, error) {
	query := `
        SELECT COALESCE(text, ''), day_of_week, hour, minute
        FROM weekly_broadcast
        WHERE id = 1
    `

	var wb models.WeeklyBroadcast
	err := s.db.QueryRowContext(ctx, query).Scan(&wb.Text, &wb.DayOfWeek, &wb.Hour, &wb.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly broadcast: %w", err)
	}
	return &wb, nil
}

func (s *SQLite) SetWeeklyText(ctx context.Context, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE weekly_broadcast SET text = ? WHERE id = 1`, text)
	if err != nil {
		return fmt.Errorf("failed to set weekly text: %w", err)
	}
	return nil
}

func (s *SQLite) SetWeeklyTime(ctx context.Context, dayOfWeek, hour, minute int) error {
	query := `UPDATE weekly_broadcast SET day_of_week = ?, hour = ?, minute = ? WHERE id = 1`

	_, err := s.db.ExecContext(ctx, query, dayOfWeek, hour, minute)
	if err != nil {
		return fmt.Errorf("failed to set weekly time: %w", err)
	}
	return nil
}
