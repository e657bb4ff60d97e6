package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFileAndDefaults(t *testing.T) {
	for _, name := range []string{"DB_URL", "POSTGRES_URL", "REDIS_URL", "STRIPE_SECRET_KEY"} {
		t.Setenv(name, "")
	}
	path := writeConfigFile(t, `
service:
  id: payout-engine-test
  http_port: 9090
dependencies:
  postgres_url: postgres://localhost:5432/payouts
  redis_url: redis://localhost:6379/0
stripe:
  api_key: sk_test_123
payout:
  min_elapsed_days: 7
scheduler:
  max_concurrency: 5
  interval_minutes: 30
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServiceID != "payout-engine-test" || cfg.HTTPPort != 9090 {
		t.Errorf("service = %s:%d, want payout-engine-test:9090", cfg.ServiceID, cfg.HTTPPort)
	}
	if cfg.MinElapsedDays != 7 {
		t.Errorf("MinElapsedDays = %d, want 7 from file", cfg.MinElapsedDays)
	}
	if cfg.MaxConcurrency != 5 || cfg.SchedulerInterval != 30*time.Minute {
		t.Errorf("scheduler = %d/%v, want 5/30m", cfg.MaxConcurrency, cfg.SchedulerInterval)
	}
	// Untouched fields keep their defaults.
	if cfg.Currency != "jpy" || cfg.OrganizerTimezone != "Asia/Tokyo" {
		t.Errorf("payout defaults = %s/%s", cfg.Currency, cfg.OrganizerTimezone)
	}
	if cfg.FeeCacheTTL != 10*time.Minute || cfg.WebhookDedupTTL != 72*time.Hour {
		t.Errorf("ttl defaults = %v/%v", cfg.FeeCacheTTL, cfg.WebhookDedupTTL)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
dependencies:
  postgres_url: postgres://file-host:5432/payouts
  redis_url: redis://file-host:6379/0
stripe:
  api_key: sk_file
`)
	t.Setenv("DB_URL", "postgres://env-host:5432/payouts")
	t.Setenv("STRIPE_SECRET_KEY", "sk_env")
	t.Setenv("PAYOUT_MIN_ELAPSED_DAYS", "10")
	t.Setenv("PAYOUT_CURRENCY", "JPY")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env-host:5432/payouts" {
		t.Errorf("DatabaseURL = %s, env must win over file", cfg.DatabaseURL)
	}
	if cfg.StripeAPIKey != "sk_env" {
		t.Errorf("StripeAPIKey = %s, want sk_env", cfg.StripeAPIKey)
	}
	if cfg.MinElapsedDays != 10 {
		t.Errorf("MinElapsedDays = %d, want 10", cfg.MinElapsedDays)
	}
	if cfg.Currency != "jpy" {
		t.Errorf("Currency = %s, must be normalized to lowercase", cfg.Currency)
	}
}

func TestLoadConfigRequiresCoreDependencies(t *testing.T) {
	for _, name := range []string{"DB_URL", "POSTGRES_URL", "STRIPE_SECRET_KEY"} {
		t.Setenv(name, "")
	}
	path := writeConfigFile(t, `
dependencies:
  redis_url: redis://localhost:6379/0
stripe:
  api_key: sk_test
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("missing database url must fail")
	}

	path = writeConfigFile(t, `
dependencies:
  postgres_url: postgres://localhost:5432/payouts
  redis_url: redis://localhost:6379/0
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("missing stripe key must fail")
	}
}
