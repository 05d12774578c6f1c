// Package config loads the module configuration from the environment,
// with optional .env file support.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries every tunable of the module. One Config describes exactly
// one backend (base URL + API key); multiple backends mean multiple
// configs and clients.
type Config struct {
	// APIBaseURL is the backend root all endpoint paths are resolved
	// against. Required.
	APIBaseURL string

	// APIKey is appended to every request as the "key" parameter.
	APIKey string

	// AppVersion, when known, is sent as the "_VERSION" parameter.
	AppVersion string

	// RedisDSN selects the Redis storage backend when non-empty.
	RedisDSN string

	// StorePath selects the file storage backend when non-empty.
	StorePath string

	// StoreSecret encrypts stored values at rest when non-empty.
	StoreSecret string

	// FastCacheMaxAge bounds how stale a cached response may be and still
	// short-circuit a network call.
	FastCacheMaxAge time.Duration

	// PasswordTTL is how long an entered password stays valid when
	// persisted.
	PasswordTTL time.Duration

	// PasswordCacheInMemory switches the password gate to the short-lived
	// in-memory retention mode: nothing persisted, PasswordMemoryTTL
	// expiry.
	PasswordCacheInMemory bool

	// PasswordMemoryTTL is the expiry used in the in-memory retention
	// mode.
	PasswordMemoryTTL time.Duration

	// QueueInterval is how often offline queues attempt to drain.
	QueueInterval time.Duration

	// RequestTimeout bounds each HTTP round-trip.
	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Defaults mirrored from the canonical client behavior.
const (
	DefaultFastCacheMaxAge   = time.Minute
	DefaultPasswordTTL       = 30 * 24 * time.Hour
	DefaultPasswordMemoryTTL = 15 * time.Minute
	DefaultQueueInterval     = 5 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
)

// Load reads configuration from a .env file (if present) and the
// environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("Could not load .env file")
		}
	}

	cfg := &Config{
		APIBaseURL:            strings.TrimSpace(os.Getenv("API_BASE_URL")),
		APIKey:                os.Getenv("API_KEY"),
		AppVersion:            os.Getenv("APP_VERSION"),
		RedisDSN:              os.Getenv("REDIS_DSN"),
		StorePath:             os.Getenv("STORE_PATH"),
		StoreSecret:           os.Getenv("STORE_SECRET"),
		FastCacheMaxAge:       envDuration("FAST_CACHE_MAX_AGE", DefaultFastCacheMaxAge),
		PasswordTTL:           envDuration("PASSWORD_TTL", DefaultPasswordTTL),
		PasswordCacheInMemory: envBool("PASSWORD_CACHE_IN_MEMORY", false),
		PasswordMemoryTTL:     envDuration("PASSWORD_MEMORY_TTL", DefaultPasswordMemoryTTL),
		QueueInterval:         envDuration("QUEUE_INTERVAL", DefaultQueueInterval),
		RequestTimeout:        envDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		LogLevel:              envDefault("LOG_LEVEL", "info"),
		LogFormat:             envDefault("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run
// without.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: API_BASE_URL %q is not an absolute URL", c.APIBaseURL)
	}
	if c.FastCacheMaxAge <= 0 {
		return fmt.Errorf("config: FAST_CACHE_MAX_AGE must be positive")
	}
	if c.QueueInterval <= 0 {
		return fmt.Errorf("config: QUEUE_INTERVAL must be positive")
	}
	if c.PasswordTTL <= 0 || c.PasswordMemoryTTL <= 0 {
		return fmt.Errorf("config: password TTLs must be positive")
	}
	return nil
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.Warnf("Invalid duration for %s: %q, using %s", name, v, fallback)
		return fallback
	}
	return d
}

func envBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.Warnf("Invalid boolean for %s: %q, using %t", name, v, fallback)
		return fallback
	}
	return b
}
