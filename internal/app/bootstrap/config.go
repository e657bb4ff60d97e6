package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the payout engine.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	StripeAPIKey        string
	StripeWebhookSecret string

	Currency          string
	OrganizerTimezone string
	MinElapsedDays    int
	NotesMaxLength    int
	FeeCacheTTL       time.Duration
	WebhookDedupTTL   time.Duration

	MaxConcurrency    int
	BatchDelay        time.Duration
	CandidateLimit    int
	LogRetention      time.Duration
	SchedulerInterval time.Duration

	TransferMaxAttempts int
	TransferBaseBackoff time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Stripe struct {
		APIKey        string `yaml:"api_key"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"stripe"`
	Payout struct {
		Currency          string `yaml:"currency"`
		OrganizerTimezone string `yaml:"organizer_timezone"`
		MinElapsedDays    int    `yaml:"min_elapsed_days"`
	} `yaml:"payout"`
	Scheduler struct {
		MaxConcurrency  int `yaml:"max_concurrency"`
		BatchDelaySecs  int `yaml:"batch_delay_seconds"`
		CandidateLimit  int `yaml:"candidate_limit"`
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"scheduler"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "payout-engine",
		HTTPPort:            8080,
		MaxDBConns:          20,
		Currency:            "jpy",
		OrganizerTimezone:   "Asia/Tokyo",
		MinElapsedDays:      5,
		NotesMaxLength:      500,
		FeeCacheTTL:         10 * time.Minute,
		WebhookDedupTTL:     72 * time.Hour,
		MaxConcurrency:      3,
		BatchDelay:          time.Second,
		CandidateLimit:      50,
		LogRetention:        30 * 24 * time.Hour,
		SchedulerInterval:   time.Hour,
		TransferMaxAttempts: 3,
		TransferBaseBackoff: 500 * time.Millisecond,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Stripe.APIKey != "" {
			cfg.StripeAPIKey = f.Stripe.APIKey
		}
		if f.Stripe.WebhookSecret != "" {
			cfg.StripeWebhookSecret = f.Stripe.WebhookSecret
		}
		if f.Payout.Currency != "" {
			cfg.Currency = f.Payout.Currency
		}
		if f.Payout.OrganizerTimezone != "" {
			cfg.OrganizerTimezone = f.Payout.OrganizerTimezone
		}
		if f.Payout.MinElapsedDays > 0 {
			cfg.MinElapsedDays = f.Payout.MinElapsedDays
		}
		if f.Scheduler.MaxConcurrency > 0 {
			cfg.MaxConcurrency = f.Scheduler.MaxConcurrency
		}
		if f.Scheduler.BatchDelaySecs > 0 {
			cfg.BatchDelay = time.Duration(f.Scheduler.BatchDelaySecs) * time.Second
		}
		if f.Scheduler.CandidateLimit > 0 {
			cfg.CandidateLimit = f.Scheduler.CandidateLimit
		}
		if f.Scheduler.IntervalMinutes > 0 {
			cfg.SchedulerInterval = time.Duration(f.Scheduler.IntervalMinutes) * time.Minute
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.StripeAPIKey = envOrDefault("STRIPE_SECRET_KEY", cfg.StripeAPIKey)
	cfg.StripeWebhookSecret = envOrDefault("STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret)
	cfg.Currency = strings.ToLower(envOrDefault("PAYOUT_CURRENCY", cfg.Currency))
	cfg.OrganizerTimezone = envOrDefault("ORGANIZER_TIMEZONE", cfg.OrganizerTimezone)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.MinElapsedDays = envInt("PAYOUT_MIN_ELAPSED_DAYS", cfg.MinElapsedDays)
	cfg.NotesMaxLength = envInt("PAYOUT_NOTES_MAX_LENGTH", cfg.NotesMaxLength)
	cfg.MaxConcurrency = envInt("SCHEDULER_MAX_CONCURRENCY", cfg.MaxConcurrency)
	cfg.CandidateLimit = envInt("SCHEDULER_CANDIDATE_LIMIT", cfg.CandidateLimit)
	cfg.TransferMaxAttempts = envInt("TRANSFER_MAX_ATTEMPTS", cfg.TransferMaxAttempts)

	cfg.FeeCacheTTL = time.Duration(envInt("FEE_CACHE_TTL_SECONDS", int(cfg.FeeCacheTTL.Seconds()))) * time.Second
	cfg.WebhookDedupTTL = time.Duration(envInt("WEBHOOK_DEDUP_TTL_HOURS", int(cfg.WebhookDedupTTL.Hours()))) * time.Hour
	cfg.BatchDelay = time.Duration(envInt("SCHEDULER_BATCH_DELAY_SECONDS", int(cfg.BatchDelay.Seconds()))) * time.Second
	cfg.LogRetention = time.Duration(envInt("SCHEDULER_LOG_RETENTION_DAYS", int(cfg.LogRetention.Hours()/24))) * 24 * time.Hour
	cfg.SchedulerInterval = time.Duration(envInt("SCHEDULER_INTERVAL_MINUTES", int(cfg.SchedulerInterval.Minutes()))) * time.Minute
	cfg.TransferBaseBackoff = time.Duration(envInt("TRANSFER_BASE_BACKOFF_MS", int(cfg.TransferBaseBackoff.Milliseconds()))) * time.Millisecond

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.StripeAPIKey == "" {
		return Config{}, fmt.Errorf("missing STRIPE_SECRET_KEY")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
