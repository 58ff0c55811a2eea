package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "PORT", "DATABASE_URL", "STORAGE_PATH",
		"JOB_POLL_INTERVAL", "JOB_BASE_TIMEOUT", "JOB_PER_ITEM_TIMEOUT", "JOB_TIMEOUT_SLACK",
		"SWEEP_INTERVAL", "ORPHAN_MAX_AGE", "JOB_BASE_RETENTION", "JOB_MAX_RETENTION",
		"VARIANT_CACHE_BUDGET_MB", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AppEnv != "development" || cfg.Port != "8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.BaseTimeout != 2*time.Minute || cfg.PerItemTimeout != 750*time.Millisecond || cfg.TimeoutSlack != 30*time.Second {
		t.Fatalf("timeout policy = %v/%v/%v", cfg.BaseTimeout, cfg.PerItemTimeout, cfg.TimeoutSlack)
	}
	if cfg.SweepInterval != 5*time.Minute || cfg.OrphanMaxAge != time.Hour {
		t.Fatalf("sweeper policy = %v/%v", cfg.SweepInterval, cfg.OrphanMaxAge)
	}
	if cfg.BaseRetention != 10*time.Minute || cfg.MaxRetention != time.Hour {
		t.Fatalf("retention policy = %v/%v", cfg.BaseRetention, cfg.MaxRetention)
	}
	if cfg.CacheBudgetBytes != 256<<20 {
		t.Fatalf("CacheBudgetBytes = %d", cfg.CacheBudgetBytes)
	}
	if cfg.CORSOrigins != nil {
		t.Fatalf("CORSOrigins = %v, want nil", cfg.CORSOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/artengine")
	t.Setenv("STORAGE_PATH", "/var/lib/artengine")
	t.Setenv("JOB_BASE_TIMEOUT", "5m")
	t.Setenv("JOB_PER_ITEM_TIMEOUT", "1s")
	t.Setenv("VARIANT_CACHE_BUDGET_MB", "64")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AppEnv != "production" || cfg.Port != "9090" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://localhost/artengine" || cfg.StoragePath != "/var/lib/artengine" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.BaseTimeout != 5*time.Minute || cfg.PerItemTimeout != time.Second {
		t.Fatalf("timeout policy = %v/%v", cfg.BaseTimeout, cfg.PerItemTimeout)
	}
	if cfg.CacheBudgetBytes != 64<<20 {
		t.Fatalf("CacheBudgetBytes = %d", cfg.CacheBudgetBytes)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != want[0] || cfg.CORSOrigins[1] != want[1] {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("JOB_BASE_TIMEOUT", "not-a-duration")
	t.Setenv("VARIANT_CACHE_BUDGET_MB", "lots")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BaseTimeout != 2*time.Minute {
		t.Fatalf("BaseTimeout = %v, want default", cfg.BaseTimeout)
	}
	if cfg.CacheBudgetBytes != 256<<20 {
		t.Fatalf("CacheBudgetBytes = %d, want default", cfg.CacheBudgetBytes)
	}
}
