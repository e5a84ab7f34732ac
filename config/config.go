// config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram struct {
		Token  string
		Admins []string // usernames allowed into the admin panel
	}
	DB struct {
		Driver       string // "postgres" or "sqlite"
		Host         string
		Port         string
		User         string
		Password     string
		DBName       string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
		ConnLifetime time.Duration
		SQLitePath   string
	}
	Server struct {
		Port      string
		POSSecret string // shared secret for the POS purchase/redeem API
	}
	Venue struct {
		MenuURL      string
		DeliveryURL  string
		InstagramURL string
		BookingPhone string
	}
	Session struct {
		TTL time.Duration // idle admin sessions are dropped after this
	}
	ShutdownTimeout time.Duration
}

// Load reads config.yaml (current dir, ./config, $HOME/.loyalty-bot) with
// environment variables taking precedence. When no config file exists the
// whole config is assembled from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.loyalty-bot")

	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("Session.TTL", 30*time.Minute)
	v.SetDefault("Server.Port", "8000")
	v.SetDefault("DB.Driver", "sqlite")
	v.SetDefault("DB.SQLitePath", "loyalty.db")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// No config file: assemble everything from the environment.
		cfg := &Config{}
		cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
		cfg.Telegram.Admins = splitList(os.Getenv("ADMIN_USERNAMES"))
		cfg.DB.Driver = getEnvOr("DB_DRIVER", "sqlite")
		cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
		cfg.DB.Port = getEnvOr("DB_PORT", "5432")
		cfg.DB.User = getEnvOr("DB_USER", "postgres")
		cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
		cfg.DB.DBName = getEnvOr("DB_NAME", "loyalty")
		cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
		cfg.DB.MaxOpenConns = 20
		cfg.DB.MaxIdleConns = 10
		cfg.DB.ConnLifetime = 5 * time.Minute
		cfg.DB.SQLitePath = getEnvOr("SQLITE_PATH", "loyalty.db")
		cfg.Server.Port = getEnvOr("PORT", "8000")
		cfg.Server.POSSecret = os.Getenv("POS_API_SECRET")
		cfg.Venue.MenuURL = os.Getenv("VENUE_MENU_URL")
		cfg.Venue.DeliveryURL = os.Getenv("VENUE_DELIVERY_URL")
		cfg.Venue.InstagramURL = os.Getenv("VENUE_INSTAGRAM_URL")
		cfg.Venue.BookingPhone = os.Getenv("VENUE_BOOKING_PHONE")
		cfg.Session.TTL = 30 * time.Minute
		cfg.ShutdownTimeout = 10 * time.Second
		return cfg, nil
	}

	// Expand ${ENV_VAR} placeholders in config values.
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
