package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"loyalty-bot/internal/models"
)

type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(cfg PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	return db, nil
}

func (db *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			phone TEXT NOT NULL,
			bonus_points BIGINT NOT NULL DEFAULT 0,
			total_spent BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS promos (
			id BIGSERIAL PRIMARY KEY,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_broadcast (
			id INT PRIMARY KEY,
			text TEXT,
			day_of_week INT NOT NULL DEFAULT 0,
			hour INT NOT NULL DEFAULT 12,
			minute INT NOT NULL DEFAULT 0
		)`,
		`INSERT INTO weekly_broadcast (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	}

	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

func (db *Postgres) UpsertUser(ctx context.Context, telegramID int64, phone string) error {
	query := `
        INSERT INTO users (telegram_id, phone)
        VALUES ($1, $2)
        ON CONFLICT (telegram_id) DO UPDATE
        SET phone = EXCLUDED.phone
    `

	_, err := db.pool.Exec(ctx, query, telegramID, phone)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *Postgres) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
        SELECT telegram_id, phone, bonus_points, total_spent, created_at
        FROM users
        WHERE telegram_id = $1
    `

	var user models.User
	err := db.pool.QueryRow(ctx, query, telegramID).Scan(
		&user.TelegramID, &user.Phone, &user.BonusPoints, &user.TotalSpent, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (db *Postgres) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.pool.Query(ctx, `SELECT telegram_id FROM users ORDER BY telegram_id`)
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

func (db *Postgres) ApplyPurchase(ctx context.Context, telegramID int64, p PurchaseUpdate) (int64, int64, error) {
	// total_spent on the right-hand side is the pre-update value, so the
	// CASE rates the purchase on the post-purchase total.
	query := `
        UPDATE users
        SET bonus_points = bonus_points + CASE WHEN total_spent + $2 >= $3 THEN $5 ELSE $4 END,
            total_spent = total_spent + $2
        WHERE telegram_id = $1
        RETURNING total_spent, bonus_points
    `

	var total, bonus int64
	err := db.pool.QueryRow(ctx, query,
		telegramID, p.Amount, p.Threshold, p.CashbackBasic, p.CashbackSilver,
	).Scan(&total, &bonus)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to apply purchase: %w", err)
	}
	return total, bonus, nil
}

func (db *Postgres) DeductPoints(ctx context.Context, telegramID int64, amount int64) (bool, error) {
	query := `
        UPDATE users
        SET bonus_points = bonus_points - $1
        WHERE telegram_id = $2 AND bonus_points >= $1
    `

	tag, err := db.pool.Exec(ctx, query, amount, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to deduct points: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *Postgres) ListPromos(ctx context.Context) ([]models.Promo, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, text, created_at FROM promos ORDER BY id`)
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

func (db *Postgres) AddPromo(ctx context.Context, text string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `INSERT INTO promos (text) VALUES ($1) RETURNING id`, text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add promo: %w", err)
	}
	return id, nil
}

func (db *Postgres) UpdatePromo(ctx context.Context, id int64, text string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE promos SET text = $2 WHERE id = $1`, id, text)
	if err != nil {
		return fmt.Errorf("failed to update promo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) DeletePromo(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM promos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) WeeklyBroadcast(ctx context.Context) (*models.WeeklyBroadcast, error) {
	query := `
        SELECT COALESCE(text, ''), day_of_week, hour, minute
        FROM weekly_broadcast
        WHERE id = 1
    `

	var wb models.WeeklyBroadcast
	err := db.pool.QueryRow(ctx, query).Scan(&wb.Text, &wb.DayOfWeek, &wb.Hour, &wb.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly broadcast: %w", err)
	}
	return &wb, nil
}

func (db *Postgres) SetWeeklyText(ctx context.Context, text string) error {
	_, err := db.pool.Exec(ctx, `UPDATE weekly_broadcast SET text = $1 WHERE id = 1`, text)
	if err != nil {
		return fmt.Errorf("failed to set weekly text: %w", err)
	}
	return nil
}

func (db *Postgres) SetWeeklyTime(ctx context.Context, dayOfWeek, hour, minute int) error {
	query := `UPDATE weekly_broadcast SET day_of_week = $1, hour = $2, minute = $3 WHERE id = 1`

	_, err := db.pool.Exec(ctx, query, dayOfWeek, hour, minute)
	if err != nil {
		return fmt.Errorf("failed to set weekly time: %w", err)
	}
	return nil
}
