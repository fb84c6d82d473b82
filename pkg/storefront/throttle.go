package storefront

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how fast the client talks to the API.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// DefaultRateLimit is generous enough that an interactive client never
// notices it, but stops a runaway loop from hammering the API.
var DefaultRateLimit = RateLimitConfig{
	RequestsPerWindow: 600,
	Window:            time.Minute,
	Burst:             50,
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST over
// defaultConfig. Invalid or non-positive values are ignored.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// newLimiter returns nil when config disables limiting.
func newLimiter(config RateLimitConfig) *rate.Limiter {
	if config.RequestsPerWindow <= 0 || config.Window <= 0 {
		return nil
	}
	burst := max(config.Burst, 1)
	return rate.NewLimiter(rate.Limit(float64(config.RequestsPerWindow)/config.Window.Seconds()), burst)
}
