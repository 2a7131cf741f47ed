package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Mail      MailConfig      `yaml:"mail"`
	Charts    ChartsConfig    `yaml:"charts"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig holds settings for the trigger and dashboard HTTP surface.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// TriggerRateLimit caps POST /admin/jobs per client per minute.
	TriggerRateLimit int `yaml:"trigger_rate_limit" env:"SERVER_TRIGGER_RATE_LIMIT" env-default:"30"`
}

// CORSConfig holds Cross-Origin Resource Sharing settings for the dashboard reads.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"http://localhost:5173"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Request-Id"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"3600"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds the settings used to verify bearer tokens on the trigger surface.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"quizmaster"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// JobsConfig holds worker pool, retry and timeout settings.
type JobsConfig struct {
	Workers         int           `yaml:"workers"          env:"JOBS_WORKERS"          env-default:"4"`
	QueueSize       int           `yaml:"queue_size"       env:"JOBS_QUEUE_SIZE"       env-default:"64"`
	MaxAttempts     int           `yaml:"max_attempts"     env:"JOBS_MAX_ATTEMPTS"     env-default:"3"`
	BaseDelay       time.Duration `yaml:"base_delay"       env:"JOBS_BASE_DELAY"       env-default:"2s"`
	MaxDelay        time.Duration `yaml:"max_delay"        env:"JOBS_MAX_DELAY"        env-default:"1m"`
	HardTimeout     time.Duration `yaml:"hard_timeout"     env:"JOBS_HARD_TIMEOUT"     env-default:"30m"`
	SoftTimeout     time.Duration `yaml:"soft_timeout"     env:"JOBS_SOFT_TIMEOUT"     env-default:"25m"`
	StepTimeout     time.Duration `yaml:"step_timeout"     env:"JOBS_STEP_TIMEOUT"     env-default:"30s"`
	BatchSize       int           `yaml:"batch_size"       env:"JOBS_BATCH_SIZE"       env-default:"100"`
	RetentionPeriod time.Duration `yaml:"retention_period" env:"JOBS_RETENTION_PERIOD" env-default:"720h"`
	PersistRecords  bool          `yaml:"persist_records"  env:"JOBS_PERSIST_RECORDS"  env-default:"true"`
}

// SchedulerConfig holds calendar trigger settings.
type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"        env:"SCHEDULER_ENABLED"        env-default:"true"`
	Timezone      string `yaml:"timezone"       env:"SCHEDULER_TIMEZONE"       env-default:"Asia/Kolkata"`
	DailyDigest   string `yaml:"daily_digest"   env:"SCHEDULER_DAILY_DIGEST"   env-default:"0 18 * * *"`
	MonthlyReport string `yaml:"monthly_report" env:"SCHEDULER_MONTHLY_REPORT" env-default:"0 0 1 * *"`

	// Location is resolved from Timezone during validation.
	Location *time.Location `yaml:"-" env:"-"`
}

// MailConfig holds outbound delivery settings.
type MailConfig struct {
	Provider  string `yaml:"provider"   env:"MAIL_PROVIDER"   env-default:"log"`
	APIKey    string `yaml:"api_key"    env:"MAIL_API_KEY"`
	FromName  string `yaml:"from_name"  env:"MAIL_FROM_NAME"  env-default:"Quiz Master"`
	FromEmail string `yaml:"from_email" env:"MAIL_FROM_EMAIL" env-default:"noreply@localhost"`
	BaseURL   string `yaml:"base_url"   env:"MAIL_BASE_URL"   env-default:"https://api.sendgrid.com"`
}

// ChartsConfig holds chart artifact store settings.
type ChartsConfig struct {
	Root      string        `yaml:"root"      env:"CHARTS_ROOT"      env-default:"./static/charts"`
	Format    string        `yaml:"format"    env:"CHARTS_FORMAT"    env-default:"png"`
	Retention time.Duration `yaml:"retention" env:"CHARTS_RETENTION" env-default:"24h"`
	Width     int           `yaml:"width"     env:"CHARTS_WIDTH"     env-default:"800"`
	Height    int           `yaml:"height"    env:"CHARTS_HEIGHT"    env-default:"480"`
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"      env:"CACHE_TTL"      env-default:"1s"`
	MaxKeys int           `yaml:"max_keys" env:"CACHE_MAX_KEYS" env-default:"4096"`
}
