package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Crawl     CrawlConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// CrawlConfig controls the channel crawler.
type CrawlConfig struct {
	// DefaultTimeout is the per-request crawl deadline.
	DefaultTimeout time.Duration // default: 120s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 600s

	// FetchTimeout bounds one network exchange (tab page or continuation).
	FetchTimeout time.Duration // default: 30s

	// EnrichTimeout bounds one full-description lookup.
	EnrichTimeout time.Duration // default: 10s

	// PageDelay is the minimum interval between consecutive upstream
	// requests of one crawl. Cooperative pacing, not a correctness need.
	PageDelay time.Duration // default: 100ms

	// MaxPagesPerTab is the absolute ceiling on continuation fetches for
	// one tab, guarding against token loops that keep yielding duplicates.
	MaxPagesPerTab int // default: 500

	// MaxItemsPerTab is the absolute ceiling on one tab's result size when
	// the caller supplies no cap.
	MaxItemsPerTab int // default: 10000

	// LocaleHL and LocaleGL are the language and region sent with every
	// continuation request.
	LocaleHL string // default: "en"
	LocaleGL string // default: "US"

	// DefaultProxy is the proxy URL for all upstream requests.
	DefaultProxy string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys (for MVP; replace with DB later).
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the channel response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TUBETAP_HOST", "0.0.0.0"),
			Port: envIntOr("TUBETAP_PORT", 8080),
			Mode: envOr("TUBETAP_MODE", "release"),
		},
		Crawl: CrawlConfig{
			DefaultTimeout: envDurationOr("TUBETAP_DEFAULT_TIMEOUT", 120*time.Second),
			MaxTimeout:     envDurationOr("TUBETAP_MAX_TIMEOUT", 600*time.Second),
			FetchTimeout:   envDurationOr("TUBETAP_FETCH_TIMEOUT", 30*time.Second),
			EnrichTimeout:  envDurationOr("TUBETAP_ENRICH_TIMEOUT", 10*time.Second),
			PageDelay:      envDurationOr("TUBETAP_PAGE_DELAY", 100*time.Millisecond),
			MaxPagesPerTab: envIntOr("TUBETAP_MAX_PAGES_PER_TAB", 500),
			MaxItemsPerTab: envIntOr("TUBETAP_MAX_ITEMS_PER_TAB", 10000),
			LocaleHL:       envOr("TUBETAP_LOCALE_HL", "en"),
			LocaleGL:       envOr("TUBETAP_LOCALE_GL", "US"),
			DefaultProxy:   os.Getenv("TUBETAP_PROXY"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TUBETAP_AUTH_ENABLED", true),
			APIKeys: envSliceOr("TUBETAP_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TUBETAP_RATE_RPS", 5.0),
			Burst:             envIntOr("TUBETAP_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TUBETAP_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("TUBETAP_LOG_LEVEL", "info"),
			Format: envOr("TUBETAP_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
