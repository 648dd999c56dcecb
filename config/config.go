// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	// DefaultLiffOrigin is the origin the LINE Mini App is served from.
	// Legacy LIFF apps use liff.line.me and arrive via ALLOWED_ORIGINS.
	DefaultLiffOrigin = "https://miniapp.line.me"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment Environment `mapstructure:"ENVIRONMENT"`
	Port        string      `mapstructure:"PORT"`
	Version     string      `mapstructure:"VERSION"`
	// LiffOrigin is the primary cross-origin source, always allowed.
	LiffOrigin string `mapstructure:"LIFF_ORIGIN"`
	// AllowedOrigins is computed by LoadConfig: LiffOrigin merged with the
	// comma-separated ALLOWED_ORIGINS list, de-duplicated in order.
	AllowedOrigins []string `mapstructure:"-"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST"`
	Port         int    `mapstructure:"PORT"`
	User         string `mapstructure:"USER"`
	Password     string `mapstructure:"PASSWORD"`
	Name         string `mapstructure:"NAME"`
	SSLMode      string `mapstructure:"SSL_MODE"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS"`
}

// ConnString returns a key-value connection string for pgxpool.
func (c *DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.sslMode())
}

// URL returns a postgres:// connection URL suitable for golang-migrate and
// other URL-based database tools.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		c.sslMode(),
	)
}

func (c *DatabaseConfig) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

// RedisConfig holds Redis connection details. An empty address disables
// the rate limiter entirely.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Enabled reports whether a Redis instance is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}

// EmailConfig holds configuration for sending inquiry notification emails.
// Exactly one of APIKey / APIKeyFile must be set; APIKeyFile points at a
// mounted secret that may be rotated while the process runs.
type EmailConfig struct {
	FromAddress   string `mapstructure:"FROM_ADDRESS"`
	FromName      string `mapstructure:"FROM_NAME"`
	AdminAddress  string `mapstructure:"ADMIN_ADDRESS"`
	APIKey        string `mapstructure:"RESEND_API_KEY"`
	APIKeyFile    string `mapstructure:"RESEND_API_KEY_FILE"`
	KeyTTLMinutes int    `mapstructure:"KEY_TTL_MINUTES"`
}

// LineConfig holds the LINE Login channel used to verify ID tokens.
type LineConfig struct {
	ChannelID string `mapstructure:"CHANNEL_ID"`
}

// TurnstileConfig holds the Cloudflare Turnstile secret. An empty secret
// disables the check (fail-open, for environments where it is not provisioned).
type TurnstileConfig struct {
	SecretKey string `mapstructure:"SECRET_KEY"`
}

// RateLimitConfig holds configuration for the inquiry-endpoint rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"REQUESTS_PER_MINUTE"`
	WindowSeconds     int `mapstructure:"WINDOW_SECONDS"`
}

// WorkerPoolConfig holds configuration for the email dispatch worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS"`
	QueueSize              int `mapstructure:"QUEUE_SIZE"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server     ServerConfig     `mapstructure:"SERVER"`
	Database   DatabaseConfig   `mapstructure:"DATABASE"`
	Redis      RedisConfig      `mapstructure:"REDIS"`
	Email      EmailConfig      `mapstructure:"EMAIL"`
	Line       LineConfig       `mapstructure:"LINE"`
	Turnstile  TurnstileConfig  `mapstructure:"TURNSTILE"`
	RateLimit  RateLimitConfig  `mapstructure:"RATE_LIMIT"`
	WorkerPool WorkerPoolConfig `mapstructure:"WORKER_POOL"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.VERSION", "1.0.0")
	v.SetDefault("SERVER.LIFF_ORIGIN", DefaultLiffOrigin)
	v.SetDefault("SERVER.ALLOWED_ORIGINS", "https://liff.line.me,https://miniapp.line.me")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "contact_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("REDIS.ADDRESS", "")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("EMAIL.FROM_ADDRESS", "no-reply@gizmodojp-line-bot.frwi.tech")
	v.SetDefault("EMAIL.FROM_NAME", "Gizmodo Japan LINE Bot")
	v.SetDefault("EMAIL.ADMIN_ADDRESS", "admin@example.com")
	v.SetDefault("EMAIL.KEY_TTL_MINUTES", 60)
	v.SetDefault("LINE.CHANNEL_ID", "")
	v.SetDefault("TURNSTILE.SECRET_KEY", "")
	v.SetDefault("RATE_LIMIT.REQUESTS_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 4)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 100)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.VERSION", "VERSION"},
		{"SERVER.LIFF_ORIGIN", "LIFF_ORIGIN"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"DATABASE.MAX_OPEN_CONNS", "DB_MAX_OPEN_CONNS"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.ADMIN_ADDRESS", "ADMIN_EMAIL"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"EMAIL.RESEND_API_KEY_FILE", "RESEND_API_KEY_FILE"},
		{"EMAIL.KEY_TTL_MINUTES", "RESEND_KEY_TTL_MINUTES"},
		{"LINE.CHANNEL_ID", "LINE_CHANNEL_ID"},
		{"TURNSTILE.SECRET_KEY", "TURNSTILE_SECRET_KEY"},
		{"RATE_LIMIT.REQUESTS_PER_MINUTE", "RATE_LIMIT_REQUESTS_PER_MINUTE"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	cfg.Server.AllowedOrigins = MergeOrigins(cfg.Server.LiffOrigin, v.GetString("SERVER.ALLOWED_ORIGINS"))

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"db_host", cfg.Database.Host,
		"allowed_origins", cfg.Server.AllowedOrigins,
		"turnstile_enabled", cfg.Turnstile.SecretKey != "",
		"rate_limit_enabled", cfg.Redis.Enabled(),
	)
	return &cfg, nil
}

// MergeOrigins combines the primary origin with a comma-separated list of
// additional origins, trimming whitespace and dropping duplicates while
// preserving order.
func MergeOrigins(primary, extra string) []string {
	origins := make([]string, 0, 4)
	seen := make(map[string]bool)

	add := func(origin string) {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			return
		}
		seen[origin] = true
		origins = append(origins, origin)
	}

	add(primary)
	for _, origin := range strings.Split(extra, ",") {
		add(origin)
	}
	return origins
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if _, err := url.ParseRequestURI(origin); err != nil {
			return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}

	if cfg.Email.FromAddress == "" {
		return fmt.Errorf("email from address is required")
	}
	if cfg.Email.AdminAddress == "" {
		return fmt.Errorf("admin email address is required")
	}
	if cfg.Email.APIKey == "" && cfg.Email.APIKeyFile == "" {
		return fmt.Errorf("either RESEND_API_KEY or RESEND_API_KEY_FILE is required")
	}
	if cfg.Email.APIKey != "" && cfg.Email.APIKeyFile != "" {
		return fmt.Errorf("RESEND_API_KEY and RESEND_API_KEY_FILE are mutually exclusive")
	}
	if cfg.Email.KeyTTLMinutes <= 0 {
		return fmt.Errorf("email key TTL must be positive")
	}

	if cfg.Line.ChannelID == "" {
		log.Warn("LINE channel ID is not set; identity verification will reject all ID tokens.")
	}
	if cfg.Turnstile.SecretKey == "" {
		log.Warn("Turnstile secret key is not set; anti-abuse verification is disabled.")
	}

	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	return nil
}
