package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoragePath string

	// PollInterval paces the worker's pending-job claims.
	PollInterval time.Duration

	// Job deadline policy: max(BaseTimeout, PerItemTimeout*N + TimeoutSlack).
	BaseTimeout    time.Duration
	PerItemTimeout time.Duration
	TimeoutSlack   time.Duration

	// Sweeper policy.
	SweepInterval time.Duration
	OrphanMaxAge  time.Duration
	BaseRetention time.Duration
	MaxRetention  time.Duration

	// CacheBudgetBytes bounds the decoded-variant cache per job; ignored in
	// low-memory mode.
	CacheBudgetBytes int64

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it hosts fall back
// to the in-memory registry and run jobs in-process.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),

		PollInterval: getEnvDuration("JOB_POLL_INTERVAL", 2*time.Second),

		BaseTimeout:    getEnvDuration("JOB_BASE_TIMEOUT", 2*time.Minute),
		PerItemTimeout: getEnvDuration("JOB_PER_ITEM_TIMEOUT", 750*time.Millisecond),
		TimeoutSlack:   getEnvDuration("JOB_TIMEOUT_SLACK", 30*time.Second),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		OrphanMaxAge:  getEnvDuration("ORPHAN_MAX_AGE", time.Hour),
		BaseRetention: getEnvDuration("JOB_BASE_RETENTION", 10*time.Minute),
		MaxRetention:  getEnvDuration("JOB_MAX_RETENTION", time.Hour),

		CacheBudgetBytes: int64(getEnvInt("VARIANT_CACHE_BUDGET_MB", 256)) * 1024 * 1024,

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		CORSOrigins:      getEnvList("CORS_ORIGINS", nil),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
