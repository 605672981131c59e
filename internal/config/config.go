// Package config loads runtime settings from the environment and an
// optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          int           `mapstructure:"CASTLE_PORT"`
	DBPath        string        `mapstructure:"CASTLE_DB_PATH"`
	Timezone      string        `mapstructure:"CASTLE_TIMEZONE"`
	LogLevel      string        `mapstructure:"CASTLE_LOG_LEVEL"`
	LogFormat     string        `mapstructure:"CASTLE_LOG_FORMAT"`
	StoreTimeout  time.Duration `mapstructure:"CASTLE_STORE_TIMEOUT"`
	NotifyTimeout time.Duration `mapstructure:"CASTLE_NOTIFY_TIMEOUT"`
	RateLimit     int           `mapstructure:"CASTLE_RATE_LIMIT"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `mapstructure:"TELEGRAM_CHAT_ID"`

	VAPIDPublicKey  string `mapstructure:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `mapstructure:"VAPID_SUBSCRIBER"`

	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	BackupDir        string `mapstructure:"CASTLE_BACKUP_DIR"`
	BackupPassphrase string `mapstructure:"CASTLE_BACKUP_PASSPHRASE"`
	BackupKeep       int    `mapstructure:"CASTLE_BACKUP_KEEP"`

	loc *time.Location
}

var defaults = map[string]any{
	"CASTLE_PORT":           8080,
	"CASTLE_DB_PATH":        "castle.db",
	"CASTLE_TIMEZONE":       "Europe/London",
	"CASTLE_LOG_LEVEL":      "info",
	"CASTLE_LOG_FORMAT":     "text",
	"CASTLE_STORE_TIMEOUT":  "5s",
	"CASTLE_NOTIFY_TIMEOUT": "3s",
	"CASTLE_RATE_LIMIT":     60,
	"TELEGRAM_BOT_TOKEN":    "",
	"TELEGRAM_CHAT_ID":      "",
	"VAPID_PUBLIC_KEY":      "",
	"VAPID_PRIVATE_KEY":     "",
	"VAPID_SUBSCRIBER":      "mailto:ops@castle.local",
	"ADMIN_USERNAME":        "admin",
	"ADMIN_PASSWORD_HASH":   "",

	"CASTLE_BACKUP_DIR":        "backups",
	"CASTLE_BACKUP_PASSPHRASE": "",
	"CASTLE_BACKUP_KEEP":       14,
}

// Load reads configuration from the environment. When envFile names an
// existing file it is read first and real environment variables override it.
func Load(envFile string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid CASTLE_PORT %d", cfg.Port)
	}
	if cfg.DBPath == "" {
		return errors.New("CASTLE_DB_PATH is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid CASTLE_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.loc = loc

	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("CASTLE_STORE_TIMEOUT must be positive, got %s", cfg.StoreTimeout)
	}
	if cfg.NotifyTimeout <= 0 || cfg.NotifyTimeout >= cfg.StoreTimeout {
		return fmt.Errorf("CASTLE_NOTIFY_TIMEOUT (%s) must be positive and shorter than CASTLE_STORE_TIMEOUT (%s)",
			cfg.NotifyTimeout, cfg.StoreTimeout)
	}
	if cfg.RateLimit <= 0 {
		return fmt.Errorf("invalid CASTLE_RATE_LIMIT %d", cfg.RateLimit)
	}

	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return errors.New("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == "" {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if cfg.BackupKeep < 0 {
		return fmt.Errorf("invalid CASTLE_BACKUP_KEEP %d", cfg.BackupKeep)
	}
	return nil
}

// Location is the reference timezone. It is only valid on a Config returned
// by Load.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }
func (c Config) PushEnabled() bool     { return c.VAPIDPublicKey != "" }
func (c Config) AdminEnabled() bool    { return c.AdminPasswordHash != "" }
func (c Config) BackupEnabled() bool   { return c.BackupDir != "" }

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
