// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// bot
	BotToken string
	AdminIDs []int64

	// staff destinations for completed reports
	GroupID   int64
	ChannelID int64

	// database
	DatabaseURL string

	// nats
	NatsURL string

	// conversation limits
	DailyLimit        int
	MaxDescriptionLen int
	MaxAnnotationLen  int
	MaxProofBytes     int64
	CaptchaAttempts   int

	// background loops
	NotifyInterval time.Duration
	WatchInterval  time.Duration

	// scheduler variant
	SchedulerPoll time.Duration
	SessionsDir   string

	// session conversion variant
	UploadsDir string

	// mtproto (username resolution, scheduler accounts)
	TGApiID   int
	TGApiHash string

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:          getEnv("BOT_TOKEN", ""),
		AdminIDs:          getEnvIDs("ADMIN_IDS"),
		GroupID:           getEnvInt64("GROUP_ID", 0),
		ChannelID:         getEnvInt64("CHANNEL_ID", 0),
		DatabaseURL:       getEnv("DATABASE_URL", "./reports.db"),
		NatsURL:           getEnv("NATS_URL", ""),
		DailyLimit:        getEnvInt("DAILY_LIMIT", 3),
		MaxDescriptionLen: getEnvInt("MAX_DESCRIPTION_LEN", 1000),
		MaxAnnotationLen:  getEnvInt("MAX_ANNOTATION_LEN", 500),
		MaxProofBytes:     getEnvInt64("MAX_PROOF_BYTES", 10<<20),
		CaptchaAttempts:   getEnvInt("CAPTCHA_ATTEMPTS", 3),
		NotifyInterval:    getEnvSeconds("NOTIFY_INTERVAL_SECONDS", 60),
		WatchInterval:     getEnvSeconds("WATCH_INTERVAL_SECONDS", 600),
		SchedulerPoll:     getEnvSeconds("SCHEDULER_POLL_SECONDS", 30),
		SessionsDir:       getEnv("SESSIONS_DIR", "./sessions"),
		UploadsDir:        getEnv("UPLOADS_DIR", "./uploads"),
		TGApiID:           getEnvInt("TG_API_ID", 0),
		TGApiHash:         getEnv("TG_API_HASH", ""),
		HTTPPort:          getEnvInt("HTTP_PORT", 3200),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// IsAdmin reports whether id belongs to the static admin set.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvSeconds(key string, defaultVal int) time.Duration {
	return time.Duration(getEnvInt(key, defaultVal)) * time.Second
}

// getEnvIDs parses a comma-separated list of numeric ids.
// malformed entries are skipped.
func getEnvIDs(key string) []int64 {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
