package shared

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"peakstay_mcp/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string

	ProviderBase string
	ProviderKey  string
	APITimeout   time.Duration

	CacheTTL      time.Duration
	CacheMaxLocal int

	RateWindow time.Duration
	RateMax    int

	RefDataTTL     time.Duration
	MatchThreshold float64
	TypePriorities map[domain.EntityType]int

	MinResults      int
	MaxResults      int
	DefaultResults  int
	DefaultCurrency string
	DefaultLang     string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),

		ProviderBase: env("PEAKSTAY_BASE_URL", "https://api.peakstay.travel/v1"),
		ProviderKey:  env("PEAKSTAY_API_KEY", ""),
		APITimeout:   time.Duration(atoi("API_TIMEOUT_MS", 10_000)) * time.Millisecond,

		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheMaxLocal: atoi("CACHE_MAX_LOCAL", 500),

		RateWindow: time.Duration(atoi("RATE_WINDOW_MS", 60_000)) * time.Millisecond,
		RateMax:    atoi("RATE_MAX_REQUESTS", 30),

		RefDataTTL:     time.Duration(atoi("REFDATA_TTL_SECONDS", 86_400)) * time.Second,
		MatchThreshold: atof("MATCH_THRESHOLD", 0.3),
		TypePriorities: map[domain.EntityType]int{
			domain.TypeSkiArea: 5,
			domain.TypeResort:  4,
			domain.TypeCity:    3,
			domain.TypeRegion:  2,
			domain.TypeCountry: 1,
		},

		MinResults:      1,
		MaxResults:      100,
		DefaultResults:  10,
		DefaultCurrency: "EUR",
		DefaultLang:     "en",
	}
	if c.ProviderKey == "" {
		log.Warn().Msg("PEAKSTAY_API_KEY is empty")
	}
	return c
}

// Validate catches contradictory settings once at startup instead of deep in
// the request path.
func (c Config) Validate() error {
	if c.RateMax <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("rate limit config invalid: max=%d window=%s", c.RateMax, c.RateWindow)
	}
	if c.CacheMaxLocal <= 0 {
		return fmt.Errorf("CACHE_MAX_LOCAL must be positive, got %d", c.CacheMaxLocal)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold >= 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in [0,1), got %f", c.MatchThreshold)
	}
	if c.MinResults < 1 || c.MaxResults < c.MinResults {
		return fmt.Errorf("result bounds invalid: min=%d max=%d", c.MinResults, c.MaxResults)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT_MS must be positive")
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
