package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STOREFRONT_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, storefront.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, storefront.DefaultRateLimit, cfg.RateLimit)
	assert.True(t, filepath.IsAbs(cfg.DatabaseFile))
	assert.Equal(t, storefront.DefaultGuestRoutes, cfg.GuestRoutes)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
api_url = "https://shop.example.com/api"
request_timeout = "5s"
guest_routes = ["POST /orders/", "GET /products/*"]

[storage]
driver = "redis"
redis_addr = "cache:6379"
redis_db = 2
redis_ttl = "720h"

[rate_limit]
requests = 100
window_sec = 10
`)
	t.Setenv("STOREFRONT_CONFIG", path)
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "7s")
	t.Setenv("RATELIMIT_CLIENT_BURST", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.APIURL)
	assert.Equal(t, 7*time.Second, cfg.RequestTimeout, "env wins over file")
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 720*time.Hour, cfg.RedisTTL)
	assert.Equal(t, []string{"POST /orders/", "GET /products/*"}, cfg.GuestRoutes)
	assert.Equal(t, storefront.RateLimitConfig{RequestsPerWindow: 100, Window: 10 * time.Second, Burst: 3}, cfg.RateLimit)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		t.Setenv("STOREFRONT_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("STOREFRONT_CONFIG", writeConfig(t, `renewal_timeout = "soon"`))
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "renewal_timeout")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STOREFRONT_CONFIG", writeConfig(t, ""))
		t.Setenv("STOREFRONT_STORAGE", "postgres")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "postgres")
	})

	t.Run("bad guest route", func(t *testing.T) {
		t.Setenv("STOREFRONT_CONFIG", writeConfig(t, ""))
		t.Setenv("STOREFRONT_GUEST_ROUTES", "orders")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("SF_TEST_DURATION", "90")
	assert.Equal(t, 90*time.Second, getEnvDurationOrDefault("SF_TEST_DURATION", time.Minute))

	t.Setenv("SF_TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDurationOrDefault("SF_TEST_DURATION", time.Minute))

	t.Setenv("SF_TEST_DURATION", "later")
	assert.Equal(t, time.Minute, getEnvDurationOrDefault("SF_TEST_DURATION", time.Minute))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"POST /orders/", "GET /wishlist/check/*"}, splitList(" POST /orders/ ,GET /wishlist/check/*,, "))
}
