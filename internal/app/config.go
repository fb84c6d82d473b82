package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/storefront"
	toml "github.com/pelletier/go-toml/v2"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

const (
	defaultConfigPath   = "~/.config/storefront/config.toml"
	defaultDatabaseFile = "~/.local/share/storefront/storefront.db"
)

type Config struct {
	APIURL         string        // Storefront API root (default: http://localhost:8000/api)
	RequestTimeout time.Duration // Per HTTP exchange (default: 10s)
	RenewalTimeout time.Duration // Per token renewal (default: 15s)
	ExpirySkew     time.Duration // Proactive renewal window, 0 disables (default: 30s)
	GuestRoutes    []string      // "METHOD /path" entries that never end the session

	Storage        string        // memory, sqlite or redis (default: sqlite)
	DatabaseFile   string        // SQLite file (default: ~/.local/share/storefront/storefront.db)
	RedisAddr      string        // Redis address (default: localhost:6379)
	RedisDB        int           // Redis database number (default: 0)
	RedisPassword  string        // Optional
	RedisTTL       time.Duration // Expiry of idle redis keys, 0 keeps them (default: 0)
	SealPassphrase string        // Optional: encrypts the persisted session when set

	RateLimit storefront.RateLimitConfig

	Env            string        // Environment (dev, staging, prod) (default: dev)
	LogLevel       string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat      string        // Log format (json, text) (default: text)
	KeeperInterval time.Duration // Background renewal check interval (default: 1m)
	MetricsAddr    string        // Optional: serve /metrics here while watching
}

// fileConfig mirrors the TOML layout. Durations are strings such as "10s".
type fileConfig struct {
	APIURL         string   `toml:"api_url"`
	RequestTimeout string   `toml:"request_timeout"`
	RenewalTimeout string   `toml:"renewal_timeout"`
	ExpirySkew     string   `toml:"expiry_skew"`
	GuestRoutes    []string `toml:"guest_routes"`
	Env            string   `toml:"env"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
	KeeperInterval string   `toml:"keeper_interval"`
	MetricsAddr    string   `toml:"metrics_addr"`

	Storage struct {
		Driver         string `toml:"driver"`
		DatabaseFile   string `toml:"database_file"`
		RedisAddr      string `toml:"redis_addr"`
		RedisDB        *int   `toml:"redis_db"`
		RedisPassword  string `toml:"redis_password"`
		RedisTTL       string `toml:"redis_ttl"`
		SealPassphrase string `toml:"seal_passphrase"`
	} `toml:"storage"`

	RateLimit struct {
		Requests  int `toml:"requests"`
		WindowSec int `toml:"window_sec"`
		Burst     int `toml:"burst"`
	} `toml:"rate_limit"`
}

func defaultConfig() Config {
	return Config{
		APIURL:         storefront.DefaultBaseURL,
		RequestTimeout: storefront.DefaultRequestTimeout,
		RenewalTimeout: storefront.DefaultRenewalTimeout,
		ExpirySkew:     storefront.DefaultExpirySkew,
		GuestRoutes:    storefront.DefaultGuestRoutes,
		Storage:        StorageSQLite,
		DatabaseFile:   defaultDatabaseFile,
		RedisAddr:      "localhost:6379",
		RateLimit:      storefront.DefaultRateLimit,
		Env:            "dev",
		LogLevel:       "warn",
		LogFormat:      "text",
		KeeperInterval: time.Minute,
	}
}

// LoadConfig builds the configuration from defaults, then the TOML file
// named by STOREFRONT_CONFIG (or the default path, when it exists), then
// environment variables.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	path := os.Getenv("STOREFRONT_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	if err := cfg.loadFile(mustExpand(path), explicit); err != nil {
		return Config{}, err
	}

	cfg.APIURL = getEnvOrDefault("STOREFRONT_API_URL", cfg.APIURL)
	cfg.RequestTimeout = getEnvDurationOrDefault("STOREFRONT_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RenewalTimeout = getEnvDurationOrDefault("STOREFRONT_RENEWAL_TIMEOUT", cfg.RenewalTimeout)
	cfg.ExpirySkew = getEnvDurationOrDefault("STOREFRONT_EXPIRY_SKEW", cfg.ExpirySkew)
	if routes := os.Getenv("STOREFRONT_GUEST_ROUTES"); routes != "" {
		cfg.GuestRoutes = splitList(routes)
	}

	cfg.Storage = strings.ToLower(getEnvOrDefault("STOREFRONT_STORAGE", cfg.Storage))
	cfg.DatabaseFile = getEnvOrDefault("STOREFRONT_DATABASE_FILE", cfg.DatabaseFile)
	cfg.RedisAddr = getEnvOrDefault("STOREFRONT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = getEnvIntOrDefault("STOREFRONT_REDIS_DB", cfg.RedisDB)
	cfg.RedisPassword = getEnvOrDefault("STOREFRONT_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisTTL = getEnvDurationOrDefault("STOREFRONT_REDIS_TTL", cfg.RedisTTL)
	cfg.SealPassphrase = getEnvOrDefault("STOREFRONT_SEAL_PASSPHRASE", cfg.SealPassphrase)

	cfg.RateLimit = storefront.ParseRateLimitFromEnv("CLIENT", cfg.RateLimit)

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.KeeperInterval = getEnvDurationOrDefault("STOREFRONT_KEEPER_INTERVAL", cfg.KeeperInterval)
	cfg.MetricsAddr = getEnvOrDefault("STOREFRONT_METRICS_ADDR", cfg.MetricsAddr)

	cfg.DatabaseFile = mustExpand(cfg.DatabaseFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("config: unknown storage driver %q (want memory, sqlite or redis)", c.Storage)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: request timeout must be positive")
	}
	if c.RenewalTimeout <= 0 {
		return errors.New("config: renewal timeout must be positive")
	}
	if _, err := storefront.ParseGuestRoutes(c.GuestRoutes); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// loadFile overlays the TOML file at path. A missing file is only an error
// when it was named explicitly.
func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.APIURL, raw.APIURL)
	setString(&c.Env, raw.Env)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.LogFormat, raw.LogFormat)
	setString(&c.MetricsAddr, raw.MetricsAddr)
	if len(raw.GuestRoutes) > 0 {
		c.GuestRoutes = raw.GuestRoutes
	}

	setString(&c.Storage, strings.ToLower(raw.Storage.Driver))
	setString(&c.DatabaseFile, raw.Storage.DatabaseFile)
	setString(&c.RedisAddr, raw.Storage.RedisAddr)
	setString(&c.RedisPassword, raw.Storage.RedisPassword)
	setString(&c.SealPassphrase, raw.Storage.SealPassphrase)
	if raw.Storage.RedisDB != nil {
		c.RedisDB = *raw.Storage.RedisDB
	}

	if raw.RateLimit.Requests > 0 {
		c.RateLimit.RequestsPerWindow = raw.RateLimit.Requests
	}
	if raw.RateLimit.WindowSec > 0 {
		c.RateLimit.Window = time.Duration(raw.RateLimit.WindowSec) * time.Second
	}
	if raw.RateLimit.Burst > 0 {
		c.RateLimit.Burst = raw.RateLimit.Burst
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &c.RequestTimeout},
		{"renewal_timeout", raw.RenewalTimeout, &c.RenewalTimeout},
		{"expiry_skew", raw.ExpirySkew, &c.ExpirySkew},
		{"keeper_interval", raw.KeeperInterval, &c.KeeperInterval},
		{"storage.redis_ttl", raw.Storage.RedisTTL, &c.RedisTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config %s: %s: %w", path, d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
