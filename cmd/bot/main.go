// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-bot/config"
	"loyalty-bot/internal/bot"
	"loyalty-bot/internal/broadcast"
	"loyalty-bot/internal/ledger"
	"loyalty-bot/internal/server"
	"loyalty-bot/internal/storage"
	"loyalty-bot/pkg/logger"
)

func main() {
	l := logger.New()
	l.Info("Starting loyalty bot...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}

	if cfg.Telegram.Token == "" {
		l.Fatal("Telegram token is not configured")
	}
	if len(cfg.Telegram.Admins) == 0 {
		l.Warn("No admin usernames configured; the admin panel will be unreachable")
	}

	store, err := openStore(cfg, l.Named("storage"))
	if err != nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer store.Close()

	ldg := ledger.New(store)

	telegramBot, err := bot.New(bot.Options{
		Token:  cfg.Telegram.Token,
		Admins: cfg.Telegram.Admins,
		Venue: bot.VenueInfo{
			MenuURL:      cfg.Venue.MenuURL,
			DeliveryURL:  cfg.Venue.DeliveryURL,
			InstagramURL: cfg.Venue.InstagramURL,
			BookingPhone: cfg.Venue.BookingPhone,
		},
		SessionTTL: cfg.Session.TTL,
	}, store, ldg, l.Named("bot"))
	if err != nil {
		l.Fatal("Failed to connect to Telegram after multiple attempts", err)
	}

	broadcaster := broadcast.New(store, telegramBot, l.Named("broadcast"))
	scheduler := broadcast.NewScheduler(broadcaster, store, l.Named("scheduler"))
	telegramBot.AttachBroadcast(broadcaster, scheduler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := telegramBot.Start(ctx); err != nil {
		l.Fatal("Failed to start Telegram bot", err)
	}
	l.Info("Telegram bot started successfully")

	if err := scheduler.Start(ctx); err != nil {
		l.Fatal("Failed to start weekly broadcast scheduler", err)
	}

	pos := server.NewPOSHandler(ldg, cfg.Server.POSSecret, l.Named("pos"))
	httpServer := server.New(cfg.Server.Port, pos, l.Named("http"))
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}

	scheduler.Stop()

	if err := telegramBot.Stop(shutdownCtx); err != nil {
		l.Error("Error during bot shutdown", err)
	}

	l.Info("Bot stopped successfully")
}

// openStore connects to the configured backend, retrying with exponential
// backoff before giving up.
func openStore(cfg *config.Config, l *logger.Logger) (storage.Store, error) {
	const maxRetries = 5

	var store storage.Store
	var err error
	delay := time.Second

	for i := 0; i < maxRetries; i++ {
		store, err = newStore(cfg)
		if err == nil {
			return store, nil
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(delay)
		delay *= 2
	}
	return nil, err
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		return storage.NewPostgres(storage.PostgresConfig{
			Host:         cfg.DB.Host,
			Port:         cfg.DB.Port,
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			DBName:       cfg.DB.DBName,
			SSLMode:      cfg.DB.SSLMode,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			ConnLifetime: cfg.DB.ConnLifetime,
		})
	case "sqlite":
		return storage.NewSQLite(cfg.DB.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DB.Driver)
	}
}
