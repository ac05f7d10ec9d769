package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	TimeZone       string        `mapstructure:"TIMEZONE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	// Report artifacts
	ReportDir           string `mapstructure:"REPORT_DIR"`
	GCSBucket           string `mapstructure:"GCS_BUCKET"`
	GCSCredentialsFile  string `mapstructure:"GCS_CREDENTIALS_FILE"`
	ReportRetentionDays int    `mapstructure:"REPORT_RETENTION_DAYS"`

	// Scheduled jobs
	JobsEnabled       bool          `mapstructure:"JOBS_ENABLED"`
	ReportCron        string        `mapstructure:"REPORT_CRON"`
	ReminderCron      string        `mapstructure:"REMINDER_CRON"`
	CleanupCron       string        `mapstructure:"CLEANUP_CRON"`
	ReportUserTimeout time.Duration `mapstructure:"REPORT_USER_TIMEOUT"`
	ReportRecipients  []string      `mapstructure:"REPORT_RECIPIENTS"`

	// Delivery
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"JWT_SECRET", "JWT_TTL", "TIMEZONE", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "REPORT_DIR", "GCS_BUCKET", "GCS_CREDENTIALS_FILE", "REPORT_RETENTION_DAYS",
	"JOBS_ENABLED", "REPORT_CRON", "REMINDER_CRON", "CLEANUP_CRON", "REPORT_USER_TIMEOUT",
	"REPORT_RECIPIENTS", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "SMTP_FROM",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("TIMEZONE", "America/Guatemala")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("REPORT_DIR", "./reports")
	v.SetDefault("REPORT_RETENTION_DAYS", 30)
	v.SetDefault("JOBS_ENABLED", true)
	v.SetDefault("REPORT_CRON", "0 20 * * *")
	v.SetDefault("REMINDER_CRON", "0 * * * *")
	v.SetDefault("CLEANUP_CRON", "0 3 * * *")
	v.SetDefault("REPORT_USER_TIMEOUT", "2m")
	v.SetDefault("SMTP_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.ReportRecipients = splitList(cfg.ReportRecipients, v.GetString("REPORT_RECIPIENTS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// splitList normalizes comma-separated env values into a trimmed slice.
func splitList(parsed []string, raw string) []string {
	if len(parsed) > 0 {
		raw = strings.Join(parsed, ",")
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SMTPConfigured reports whether outbound email can be sent.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != ""
}

// Validate checks that the configuration is safe to run. The JWT secret is
// mandatory outside development, cron specs must parse, and a partially
// configured SMTP block is rejected.
func (c *Config) Validate() error {
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters when ENV=%q", c.Env)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid IANA zone: %w", c.TimeZone, err)
	}

	for name, spec := range map[string]string{
		"REPORT_CRON":   c.ReportCron,
		"REMINDER_CRON": c.ReminderCron,
		"CLEANUP_CRON":  c.CleanupCron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s %q is not a valid cron expression: %w", name, spec, err)
		}
	}

	if c.ReportRetentionDays <= 0 {
		return fmt.Errorf("REPORT_RETENTION_DAYS must be positive, got %d", c.ReportRetentionDays)
	}
	if c.ReportUserTimeout <= 0 {
		return fmt.Errorf("REPORT_USER_TIMEOUT must be positive, got %s", c.ReportUserTimeout)
	}

	if c.SMTPConfigured() && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}

	return nil
}
