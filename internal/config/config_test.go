package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
	t.Setenv("AUTH_JWT_SECRET", "this-is-a-very-long-jwt-secret-for-testing-32+")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10

auth:
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"

log:
  level: "debug"
  format: "text"

jobs:
  workers: 2
  max_attempts: 5
  base_delay: "1s"
  max_delay: "10s"
  hard_timeout: "10m"
  soft_timeout: "8m"
  batch_size: 50

scheduler:
  timezone: "UTC"
  daily_digest: "30 17 * * *"

charts:
  format: "webp"
  retention: "12h"
`

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{TriggerRateLimit: 30},
		Database: DatabaseConfig{DSN: "postgres://u:p@localhost:5432/testdb"},
		Auth:     AuthConfig{JWTSecret: "this-is-a-very-long-jwt-secret-for-testing-32+"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Jobs: JobsConfig{
			Workers:     4,
			QueueSize:   64,
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    time.Minute,
			HardTimeout: 30 * time.Minute,
			SoftTimeout: 25 * time.Minute,
			StepTimeout: 30 * time.Second,
			BatchSize:   100,
		},
		Scheduler: SchedulerConfig{
			Timezone:      "Asia/Kolkata",
			DailyDigest:   "0 18 * * *",
			MonthlyReport: "0 0 1 * *",
		},
		Mail:   MailConfig{Provider: "log"},
		Charts: ChartsConfig{Format: "png", Retention: 24 * time.Hour, Width: 800, Height: 480},
		Cache:  CacheConfig{TTL: time.Second, MaxKeys: 128},
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Jobs.MaxAttempts != 5 {
		t.Errorf("jobs.max_attempts = %d, want 5", cfg.Jobs.MaxAttempts)
	}
	if cfg.Jobs.BatchSize != 50 {
		t.Errorf("jobs.batch_size = %d, want 50", cfg.Jobs.BatchSize)
	}
	if cfg.Scheduler.DailyDigest != "30 17 * * *" {
		t.Errorf("scheduler.daily_digest = %q", cfg.Scheduler.DailyDigest)
	}
	if cfg.Scheduler.MonthlyReport != "0 0 1 * *" {
		t.Errorf("scheduler.monthly_report = %q, want default", cfg.Scheduler.MonthlyReport)
	}
	if cfg.Scheduler.Location == nil || cfg.Scheduler.Location.String() != "UTC" {
		t.Errorf("scheduler.location = %v, want UTC", cfg.Scheduler.Location)
	}
	if cfg.Charts.Format != "webp" {
		t.Errorf("charts.format = %q, want webp", cfg.Charts.Format)
	}
	if cfg.Cache.TTL != time.Second {
		t.Errorf("cache.ttl = %v, want 1s (default)", cfg.Cache.TTL)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JOBS_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Jobs.Workers != 8 {
		t.Errorf("jobs.workers = %d, want 8 (ENV override)", cfg.Jobs.Workers)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn (ENV override)", cfg.Log.Level)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")

	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Jobs.MaxAttempts != 3 {
		t.Errorf("jobs.max_attempts = %d, want 3 (default)", cfg.Jobs.MaxAttempts)
	}
	if cfg.Jobs.HardTimeout != 30*time.Minute || cfg.Jobs.SoftTimeout != 25*time.Minute {
		t.Errorf("jobs timeouts = %v/%v, want 30m/25m", cfg.Jobs.HardTimeout, cfg.Jobs.SoftTimeout)
	}
	if cfg.Charts.Retention != 24*time.Hour {
		t.Errorf("charts.retention = %v, want 24h", cfg.Charts.Retention)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("DATABASE_DSN")
	os.Unsetenv("AUTH_JWT_SECRET")

	dir := t.TempDir()
	env := "DATABASE_DSN=postgres://u:p@localhost:5432/fromdotenv\n" +
		"AUTH_JWT_SECRET=this-is-a-very-long-jwt-secret-for-testing-32+\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.DSN != "postgres://u:p@localhost:5432/fromdotenv" {
		t.Errorf("database.dsn = %q, want value from .env", cfg.Database.DSN)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"zero trigger rate", func(c *Config) { c.Server.TriggerRateLimit = 0 }},
		{"zero workers", func(c *Config) { c.Jobs.Workers = 0 }},
		{"zero queue", func(c *Config) { c.Jobs.QueueSize = 0 }},
		{"zero attempts", func(c *Config) { c.Jobs.MaxAttempts = 0 }},
		{"zero batch", func(c *Config) { c.Jobs.BatchSize = 0 }},
		{"max delay below base", func(c *Config) { c.Jobs.MaxDelay = time.Second }},
		{"soft above hard", func(c *Config) { c.Jobs.SoftTimeout = time.Hour }},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"bad cron", func(c *Config) { c.Scheduler.DailyDigest = "every evening" }},
		{"sendgrid without key", func(c *Config) { c.Mail.Provider = "sendgrid" }},
		{"unknown provider", func(c *Config) { c.Mail.Provider = "pigeon" }},
		{"bad chart format", func(c *Config) { c.Charts.Format = "gif" }},
		{"tiny chart", func(c *Config) { c.Charts.Width = 10 }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_ResolvesLocation(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduler.Location == nil || cfg.Scheduler.Location.String() != "Asia/Kolkata" {
		t.Errorf("location = %v, want Asia/Kolkata", cfg.Scheduler.Location)
	}
}
