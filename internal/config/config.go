// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as the Telegram credentials, the channel id, the cron schedule of the
// three phase transitions, the database path, logging, and the ops endpoint.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/filmnight/bot/internal/sysutil"
)

// TelegramConfig defines the Telegram bot identity and target channel.
type TelegramConfig struct {
	Token    string // TELEGRAM_BOT_TOKEN
	Username string // TELEGRAM_BOT_USERNAME (without the leading @)

	// ChannelChatID is the id of the group channel the bot announces into.
	// When 0 (unset), the process runs the chat-id helper bot instead of
	// the full nomination bot.
	ChannelChatID int64 // TELEGRAM_CHANNEL_CHAT_ID
}

// ScheduleConfig holds the cron expressions (with seconds field) of the three
// phase transitions.
type ScheduleConfig struct {
	CollectingCron string // COLLECTING_CRON, e.g. "30 0 0 * * MON"
	VotingCron     string // VOTING_CRON, e.g. "0 0 18 * * THU"
	PublishingCron string // PUBLISHING_CRON, e.g. "0 30 21 * * FRI"
}

// Config holds all configuration values for the application.
type Config struct {
	Telegram TelegramConfig
	Schedule ScheduleConfig

	// App
	DBPath             string        // SQLite path
	NominationCapacity int           // filled slots per cycle
	SendInterval       time.Duration // min delay between channel sends

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Ops endpoint (/healthz, /readyz, /metrics)
	OpsPort string // just the number; empty disables the endpoint
	GinMode string // debug|release|test
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Telegram: TelegramConfig{
			Token:         getenv("TELEGRAM_BOT_TOKEN", ""),
			Username:      strings.TrimPrefix(getenv("TELEGRAM_BOT_USERNAME", ""), "@"),
			ChannelChatID: getint64("TELEGRAM_CHANNEL_CHAT_ID", 0),
		},
		Schedule: ScheduleConfig{
			// default cycle: nominations open Monday night, voting opens
			// Thursday evening, result lands Friday night
			CollectingCron: getenv("COLLECTING_CRON", "30 0 0 * * MON"),
			VotingCron:     getenv("VOTING_CRON", "0 0 18 * * THU"),
			PublishingCron: getenv("PUBLISHING_CRON", "0 30 21 * * FRI"),
		},

		// App
		DBPath:             getenv("DB_PATH", "filmnight.db"),
		NominationCapacity: getint("NOMINATION_CAPACITY", 10),
		SendInterval:       getdur("SEND_INTERVAL", time.Second),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Ops
		OpsPort: getenv("OPS_PORT", "9090"),
		GinMode: strings.ToLower(getenv("GIN_MODE", "release")),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.Telegram.Username) == "" {
		return cfg, errors.New("TELEGRAM_BOT_USERNAME must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.NominationCapacity < 1 {
		return cfg, errors.New("NOMINATION_CAPACITY must be >= 1")
	}
	if cfg.SendInterval < 0 {
		return cfg, errors.New("SEND_INTERVAL must be >= 0")
	}
	for _, c := range []string{cfg.Schedule.CollectingCron, cfg.Schedule.VotingCron, cfg.Schedule.PublishingCron} {
		if strings.TrimSpace(c) == "" {
			return cfg, errors.New("cron expressions must not be empty")
		}
	}

	return cfg, nil
}

// HasChannel reports whether a channel chat id is configured, i.e. whether
// the full nomination bot should run.
func (c Config) HasChannel() bool { return c.Telegram.ChannelChatID != 0 }

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return sysutil.IsTruthy(v)
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
