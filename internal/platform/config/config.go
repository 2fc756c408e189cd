package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the service reads from its environment so main
// stays lean. The remote audit API credentials are required in production;
// defaults exist only for local development.
type Config struct {
	Addr      string
	LogFormat string

	// Remote audit API.
	APIBaseURL string
	APIToken   string
	OrgID      string

	// Remote call policy.
	HTTPTimeout      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// Anomaly detection business-hours window, evaluated in BusinessTZ.
	BusinessStartHour int
	BusinessEndHour   int
	BusinessTZ        string

	// User identity cache.
	UserCacheSize int
	UserCacheTTL  time.Duration

	// Shared secret for webhook signature verification; empty disables it.
	WebhookSecret string
}

// FromEnv builds a Config from AUDITCHAT_* environment variables.
func FromEnv() Config {
	return Config{
		Addr:      getEnv("AUDITCHAT_ADDR", ":8080"),
		LogFormat: getEnv("AUDITCHAT_LOG_FORMAT", "text"),

		APIBaseURL: getEnv("AUDITCHAT_API_BASE_URL", "https://api.example.com/v2"),
		APIToken:   os.Getenv("AUDITCHAT_API_TOKEN"),
		OrgID:      os.Getenv("AUDITCHAT_ORG_ID"),

		HTTPTimeout:      getDuration("AUDITCHAT_HTTP_TIMEOUT", 15*time.Second),
		RetryMaxAttempts: getInt("AUDITCHAT_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getDuration("AUDITCHAT_RETRY_BASE_DELAY", 500*time.Millisecond),

		BusinessStartHour: getInt("AUDITCHAT_BUSINESS_START_HOUR", 8),
		BusinessEndHour:   getInt("AUDITCHAT_BUSINESS_END_HOUR", 18),
		BusinessTZ:        getEnv("AUDITCHAT_BUSINESS_TZ", "UTC"),

		UserCacheSize: getInt("AUDITCHAT_USER_CACHE_SIZE", 512),
		UserCacheTTL:  getDuration("AUDITCHAT_USER_CACHE_TTL", time.Hour),

		WebhookSecret: os.Getenv("AUDITCHAT_WEBHOOK_SECRET"),
	}
}

// BusinessLocation resolves the configured business timezone, falling back to
// UTC when the name is unknown. The after-hours rule depends on this being an
// explicit choice rather than an implicit UTC.
func (c Config) BusinessLocation() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
