package ratelimit

import (
	"time"

	"github.com/jonathan/cofounder-matcher/internal/config"
)

// cleanupInterval is how often idle buckets are swept
const cleanupInterval = 5 * time.Minute

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// FromConfig builds limiter settings from the service configuration.
func FromConfig(cfg config.RateLimitConfig) *Config {
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    cfg.DefaultLimit,
		DefaultWindow:   cfg.DefaultWindow,
		CleanupInterval: cleanupInterval,
		EndpointConfigs: MatchingEndpointConfigs(cfg.StartLimit, cfg.StartWindow),
	}
}

// MatchingEndpointConfigs returns the per-endpoint limits. Starting a run is the
// only expensive call; reads fall through to the default limit.
func MatchingEndpointConfigs(startLimit int, startWindow time.Duration) []EndpointConfig {
	burst := max(startLimit/5, 1)
	return []EndpointConfig{
		{Path: "/matches/jobs", Method: "POST", Limit: startLimit, Window: startWindow, Burst: burst},
	}
}
