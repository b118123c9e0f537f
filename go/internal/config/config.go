package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/boxoffice/go/internal/gateway"
	"github.com/mcdev12/boxoffice/go/internal/relay"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Reservation struct {
		Window         time.Duration `yaml:"window"`
		TickInterval   time.Duration `yaml:"tick_interval"`
		CleanupTimeout time.Duration `yaml:"cleanup_timeout"`
	} `yaml:"reservation"`

	Profile struct {
		Path string `yaml:"path"`
	} `yaml:"profile"`

	Gateway struct {
		Port           string        `yaml:"port"`
		JWTSecret      string        `yaml:"jwt_secret"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		Retention      time.Duration `yaml:"retention"`
	} `yaml:"gateway"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	NATS struct {
		Enabled       bool          `yaml:"enabled"`
		URL           string        `yaml:"url"`
		StreamName    string        `yaml:"stream_name"`
		SubjectPrefix string        `yaml:"subject_prefix"`
		MaxRetries    int           `yaml:"max_retries"`
		RetryDelay    time.Duration `yaml:"retry_delay"`
	} `yaml:"nats"`
}

func Default() *Config {
	var cfg Config
	cfg.LogLevel = "info"

	cfg.API.BaseURL = "http://localhost:8080"
	cfg.API.Timeout = 30 * time.Second

	res := reservation.DefaultConfig()
	cfg.Reservation.Window = res.Window
	cfg.Reservation.TickInterval = res.TickInterval
	cfg.Reservation.CleanupTimeout = res.CleanupTimeout

	cfg.Gateway.Port = "8081"
	cfg.Gateway.AllowedOrigins = []string{"*"}
	cfg.Gateway.Retention = 5 * time.Minute

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Prefix = "boxoffice"
	cfg.Redis.TTL = 24 * time.Hour

	js := relay.DefaultJetStreamConfig()
	rl := relay.DefaultConfig()
	cfg.NATS.URL = js.URL
	cfg.NATS.StreamName = js.StreamName
	cfg.NATS.SubjectPrefix = js.SubjectPrefix
	cfg.NATS.MaxRetries = rl.MaxRetries
	cfg.NATS.RetryDelay = rl.RetryDelay
	return &cfg
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BOXOFFICE_* and the usual service
// variables
func (c *Config) ApplyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.API.BaseURL = getEnv("API_BASE_URL", c.API.BaseURL)
	c.API.Timeout = getEnvAsDuration("API_TIMEOUT", c.API.Timeout)

	c.Reservation.Window = getEnvAsDuration("RESERVATION_WINDOW", c.Reservation.Window)
	c.Reservation.TickInterval = getEnvAsDuration("RESERVATION_TICK_INTERVAL", c.Reservation.TickInterval)
	c.Reservation.CleanupTimeout = getEnvAsDuration("RESERVATION_CLEANUP_TIMEOUT", c.Reservation.CleanupTimeout)

	c.Profile.Path = getEnv("BOXOFFICE_PROFILE", c.Profile.Path)

	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)
	c.Gateway.JWTSecret = getEnv("JWT_SECRET", c.Gateway.JWTSecret)
	c.Gateway.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", c.Gateway.AllowedOrigins)
	c.Gateway.Retention = getEnvAsDuration("GATEWAY_RETENTION", c.Gateway.Retention)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = getEnv("REDIS_PREFIX", c.Redis.Prefix)
	c.Redis.TTL = getEnvAsDuration("REDIS_TTL", c.Redis.TTL)

	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.StreamName = getEnv("NATS_STREAM", c.NATS.StreamName)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)
	c.NATS.MaxRetries = getEnvAsInt("NATS_MAX_RETRIES", c.NATS.MaxRetries)
	c.NATS.RetryDelay = getEnvAsDuration("NATS_RETRY_DELAY", c.NATS.RetryDelay)
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Reservation.Window <= 0 {
		return fmt.Errorf("reservation.window must be positive, got %s", c.Reservation.Window)
	}
	if c.Reservation.TickInterval <= 0 {
		return fmt.Errorf("reservation.tick_interval must be positive, got %s", c.Reservation.TickInterval)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level is the configured zerolog level, info when unset
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) ReservationConfig() reservation.Config {
	return reservation.Config{
		Window:         c.Reservation.Window,
		TickInterval:   c.Reservation.TickInterval,
		CleanupTimeout: c.Reservation.CleanupTimeout,
	}
}

func (c *Config) GatewayConfig() gateway.Config {
	cfg := gateway.DefaultConfig()
	cfg.JWTSecret = c.Gateway.JWTSecret
	cfg.Registry.Reservation = c.ReservationConfig()
	cfg.Registry.Retention = c.Gateway.Retention
	return cfg
}

func (c *Config) JetStreamConfig() relay.JetStreamConfig {
	cfg := relay.DefaultJetStreamConfig()
	cfg.URL = c.NATS.URL
	cfg.StreamName = c.NATS.StreamName
	cfg.SubjectPrefix = c.NATS.SubjectPrefix
	return cfg
}

func (c *Config) RelayConfig() relay.Config {
	return relay.Config{MaxRetries: c.NATS.MaxRetries, RetryDelay: c.NATS.RetryDelay}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
