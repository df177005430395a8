package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the CLI and the reminder daemon.
type Config struct {
	DatabaseURL          string        `mapstructure:"database_url"`
	PreferencesPath      string        `mapstructure:"preferences_path"`
	TelegramToken        string        `mapstructure:"telegram_token"`
	TelegramChatID       int64         `mapstructure:"telegram_chat_id"`
	ReminderSyncInterval time.Duration `mapstructure:"reminder_sync_interval"`
	Timezone             string        `mapstructure:"timezone"`
	LogLevel             string        `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "todoapp.db")
	v.SetDefault("preferences_path", "todoapp_prefs.db")
	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", 0)
	v.SetDefault("reminder_sync_interval", time.Minute)
	v.SetDefault("timezone", "Local")
	v.SetDefault("log_level", "info")
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile reads an optional YAML file, then lets environment variables
// (DATABASE_URL, TELEGRAM_TOKEN, ...) override it.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.PreferencesPath = strings.TrimSpace(cfg.PreferencesPath)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if c.ReminderSyncInterval < time.Second {
		return fmt.Errorf("REMINDER_SYNC_INTERVAL must be at least 1s, got %s", c.ReminderSyncInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the system zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

// TelegramEnabled reports whether reminders go to a Telegram chat.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
