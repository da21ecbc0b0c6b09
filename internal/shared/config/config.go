package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Google   GoogleConfig   `mapstructure:"google"`
	Mail     MailConfig     `mapstructure:"mail"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	BaseURL      string        `mapstructure:"base_url"`
	ClientURL    string        `mapstructure:"client_url"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
// An empty address disables Redis and switches stores to their in-memory variants.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}

// AuthConfig holds session and invite token configuration.
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	RefreshSecret      string        `mapstructure:"refresh_secret"`
	InviteSecret       string        `mapstructure:"invite_secret"`
	Issuer             string        `mapstructure:"issuer"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"`
	InviteTokenExpiry  time.Duration `mapstructure:"invite_token_expiry"`
	SecureCookies      bool          `mapstructure:"secure_cookies"`
}

// GoogleConfig holds Google OAuth and Calendar configuration.
type GoogleConfig struct {
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	RedirectURL    string        `mapstructure:"redirect_url"`
	TimeZone       string        `mapstructure:"time_zone"`
	CalendarID     string        `mapstructure:"calendar_id"`
	FailureLimit   uint32        `mapstructure:"failure_limit"`
	CircuitTimeout time.Duration `mapstructure:"circuit_timeout"`
}

// MailConfig holds SMTP configuration.
// An empty host selects the logging sender.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// SentryConfig holds error tracking configuration.
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// ReminderConfig holds due-date reminder scheduling.
type ReminderConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Hour    int           `mapstructure:"hour"`
	Minute  int           `mapstructure:"minute"`
	Horizon time.Duration `mapstructure:"horizon"`
}

// JobsConfig holds background job manager settings.
type JobsConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from an optional .env file, a config file and the environment.
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/teamtask")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("TEAMTASK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applySecretOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applySecretOverrides reads sensitive values from short, conventional variable names.
func applySecretOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"TEAMTASK_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"TEAMTASK_REFRESH_SECRET", &cfg.Auth.RefreshSecret},
		{"TEAMTASK_INVITE_SECRET", &cfg.Auth.InviteSecret},
		{"TEAMTASK_DB_PASSWORD", &cfg.Database.Password},
		{"TEAMTASK_REDIS_PASSWORD", &cfg.Redis.Password},
		{"TEAMTASK_GOOGLE_CLIENT_SECRET", &cfg.Google.ClientSecret},
		{"TEAMTASK_SMTP_PASSWORD", &cfg.Mail.Password},
		{"TEAMTASK_SENTRY_DSN", &cfg.Sentry.DSN},
	}
	for _, o := range overrides {
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}

	// Refresh and invite tokens fall back to the access secret.
	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = cfg.Auth.JWTSecret
	}
	if cfg.Auth.InviteSecret == "" {
		cfg.Auth.InviteSecret = cfg.Auth.JWTSecret
	}
}

// Validate checks required configuration values.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
		return fmt.Errorf("config: reminder.hour must be within 0-23, got %d", c.Reminder.Hour)
	}
	if c.Reminder.Minute < 0 || c.Reminder.Minute > 59 {
		return fmt.Errorf("config: reminder.minute must be within 0-59, got %d", c.Reminder.Minute)
	}
	if _, err := time.LoadLocation(c.Google.TimeZone); err != nil {
		return fmt.Errorf("config: google.time_zone: %w", err)
	}
	return nil
}

// CalendarEnabled reports whether Google OAuth credentials are configured.
func (c *GoogleConfig) CalendarEnabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.client_url", "http://localhost:3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0) // SSE streams stay open
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "teamtask")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.issuer", "teamtask")
	v.SetDefault("auth.access_token_expiry", 15*time.Minute)
	v.SetDefault("auth.refresh_token_expiry", 7*24*time.Hour)
	v.SetDefault("auth.invite_token_expiry", 7*24*time.Hour)
	v.SetDefault("auth.secure_cookies", false)

	// Google defaults
	v.SetDefault("google.redirect_url", "http://localhost:8080/api/v1/calendar/callback")
	v.SetDefault("google.time_zone", "Asia/Jerusalem")
	v.SetDefault("google.calendar_id", "primary")
	v.SetDefault("google.failure_limit", 5)
	v.SetDefault("google.circuit_timeout", 30*time.Second)

	// Mail defaults
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@teamtask.local")
	v.SetDefault("mail.from_name", "TeamTask")

	// Sentry defaults
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	// Reminder defaults
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.hour", 8)
	v.SetDefault("reminder.minute", 0)
	v.SetDefault("reminder.horizon", 24*time.Hour)

	// Job defaults
	v.SetDefault("jobs.max_concurrent", 16)
	v.SetDefault("jobs.job_timeout", 30*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
