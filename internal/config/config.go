package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all gateway configuration
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	// Upstreams
	Upstream UpstreamConfig

	// Database configuration (audit trail)
	Database DatabaseConfig

	// Redis configuration (revocations, rate limiting)
	RedisURL string `envconfig:"REDIS_URL" required:"true"`

	// JWT verification
	JWT JWTConfig

	// Browser session cookies
	Session SessionConfig

	// CORS configuration
	CORS CORSConfig

	// Login rate limiting
	RateLimit RateLimitConfig
}

// UpstreamConfig locates the external collaborators the gateway fronts.
type UpstreamConfig struct {
	BackendURL string        `envconfig:"BACKEND_URL" required:"true"`
	AppURL     string        `envconfig:"APP_URL" required:"true"`
	Timeout    time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" required:"true"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Name     string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"require"`
}

// ConnectionString returns the PostgreSQL connection string
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// JWTConfig holds the verification parameters shared with the backend.
type JWTConfig struct {
	SecretKey string        `envconfig:"JWT_SECRET_KEY" required:"true"`
	Issuer    string        `envconfig:"JWT_ISSUER" default:"soutenance-backend"`
	TokenTTL  time.Duration `envconfig:"JWT_TOKEN_TTL" default:"1h"`
}

// SessionConfig holds session cookie parameters.
type SessionConfig struct {
	TTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	Domain string        `envconfig:"SESSION_COOKIE_DOMAIN" default:""`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// RateLimitConfig holds login throttling configuration
type RateLimitConfig struct {
	Window          time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"10m"`
	MaxAttempts     int           `envconfig:"RATE_LIMIT_MAX_ATTEMPTS" default:"5"`
	LockoutDuration time.Duration `envconfig:"RATE_LIMIT_LOCKOUT_DURATION" default:"15m"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
