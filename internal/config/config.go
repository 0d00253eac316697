package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Backend   BackendConfig   `json:"backend"`
	Features  FeatureConfig   `json:"features"`
	Session   SessionConfig   `json:"session"`
	Logging   LoggingConfig   `json:"logging"`
	Tracing   TracingConfig   `json:"tracing"`
	Security  SecurityConfig  `json:"security"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig holds gateway server configuration.
type ServerConfig struct {
	Port            string        `json:"port" env:"SERVER_PORT"`
	Host            string        `json:"host" env:"SERVER_HOST"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// BackendConfig describes the live backend the facade talks to.
type BackendConfig struct {
	URL         string        `json:"url" env:"BACKEND_URL"`
	Timeout     time.Duration `json:"timeout" env:"BACKEND_TIMEOUT"`
	UserAgent   string        `json:"user_agent" env:"BACKEND_USER_AGENT"`
	MockLatency time.Duration `json:"mock_latency" env:"MOCK_LATENCY"`
	LogoutDelay time.Duration `json:"logout_delay" env:"LOGOUT_DELAY"`
}

// FeatureConfig switches individual resources to the live backend.
type FeatureConfig struct {
	LiveOffers      bool `json:"live_offers" env:"FEATURE_LIVE_OFFERS"`
	LiveMiniApps    bool `json:"live_mini_apps" env:"FEATURE_LIVE_MINI_APPS"`
	LiveCreditScore bool `json:"live_credit_score" env:"FEATURE_LIVE_CREDIT_SCORE"`
	EventHooks      bool `json:"event_hooks" env:"FEATURE_EVENT_HOOKS"`
}

// AnyLive reports whether at least one resource uses the live backend.
func (f FeatureConfig) AnyLive() bool {
	return f.LiveOffers || f.LiveMiniApps || f.LiveCreditScore
}

// SessionConfig selects where local session credentials are kept.
type SessionConfig struct {
	Store         string `json:"store" env:"SESSION_STORE"` // memory, redis or sqlite
	RedisAddr     string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" env:"REDIS_DB"`
	DatabasePath  string `json:"database_path" env:"DATABASE_PATH"`
}

// LoggingConfig holds slog configuration.
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL"`
	Format string `json:"format" env:"LOG_FORMAT"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" env:"TRACING_ENABLED"`
	Endpoint    string `json:"endpoint" env:"TRACING_ENDPOINT"`
	Environment string `json:"environment" env:"APP_ENV"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `json:"max_request_body_size" env:"MAX_REQUEST_BODY_SIZE"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" env:"RATE_LIMIT_ENABLED"`
	RPS     int  `json:"rps" env:"RATE_LIMIT_RPS"`
	Burst   int  `json:"burst" env:"RATE_LIMIT_BURST"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Backend: BackendConfig{
			Timeout:     10 * time.Second,
			UserAgent:   "payfriend/1.0",
			LogoutDelay: 500 * time.Millisecond,
		},
		Session: SessionConfig{
			Store:        "memory",
			DatabasePath: "./payfriend.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Environment: "development",
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     "*",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     20,
			Burst:   40,
		},
	}
}

// LoadConfig loads configuration from defaults, an optional JSON file and
// environment variables. Environment variables take precedence over the file.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Fields whose variable is unset keep their current value.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// AllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) AllowedOrigins() []string {
	var result []string
	for _, origin := range strings.Split(c.Security.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Features.AnyLive() && c.Backend.URL == "" {
		return fmt.Errorf("backend url is required when a live feature is enabled")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.Backend.MockLatency < 0 || c.Backend.LogoutDelay < 0 {
		return fmt.Errorf("simulated delays must not be negative")
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis session store")
		}
	case "sqlite":
		if c.Session.DatabasePath == "" {
			return fmt.Errorf("database path is required for the sqlite session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}
	return nil
}
