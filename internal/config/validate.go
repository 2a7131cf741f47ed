package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if c.Server.TriggerRateLimit <= 0 {
		return fmt.Errorf("server.trigger_rate_limit must be > 0 (got %d)", c.Server.TriggerRateLimit)
	}

	if err := c.Jobs.validate(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := c.Scheduler.validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Mail.validate(); err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	if err := c.Charts.validate(); err != nil {
		return fmt.Errorf("charts: %w", err)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache: ttl must be > 0 (got %s)", c.Cache.TTL)
	}

	return nil
}

func (j *JobsConfig) validate() error {
	if j.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", j.Workers)
	}
	if j.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", j.QueueSize)
	}
	if j.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be > 0 (got %d)", j.MaxAttempts)
	}
	if j.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", j.BatchSize)
	}
	if j.BaseDelay <= 0 || j.MaxDelay < j.BaseDelay {
		return fmt.Errorf("base_delay must be > 0 and <= max_delay (got %s, %s)", j.BaseDelay, j.MaxDelay)
	}
	if j.SoftTimeout >= j.HardTimeout {
		return fmt.Errorf("soft_timeout must be below hard_timeout (got %s >= %s)", j.SoftTimeout, j.HardTimeout)
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	s.Location = loc

	for name, spec := range map[string]string{
		"daily_digest":   s.DailyDigest,
		"monthly_report": s.MonthlyReport,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s %q: %w", name, spec, err)
		}
	}
	return nil
}

func (m *MailConfig) validate() error {
	switch strings.ToLower(m.Provider) {
	case "log":
	case "sendgrid":
		if m.APIKey == "" {
			return fmt.Errorf("api_key is required for provider sendgrid")
		}
	default:
		return fmt.Errorf("unknown provider %q", m.Provider)
	}
	return nil
}

func (c *ChartsConfig) validate() error {
	switch strings.ToLower(c.Format) {
	case "png", "webp":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	if c.Width < 200 || c.Height < 150 {
		return fmt.Errorf("chart size %dx%d is too small", c.Width, c.Height)
	}
	return nil
}
