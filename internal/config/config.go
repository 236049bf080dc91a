package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Cache     CacheConfig
	Normalize Profile
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type FetchConfig struct {
	Timeout           time.Duration
	UserAgent         string
	Limiter           string
	RateLimitMin      time.Duration
	RateLimitMax      time.Duration
	RequestsPerSecond float64
	Burst             int
	Concurrency       int
}

type CacheConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Profile is the vendor-specific part of normalization: which measurement
// pattern families to try, in what order, and which attribute keys are noise.
type Profile struct {
	Vendor            string
	DimensionPatterns []string
	WeightPatterns    []string
	Strategy          string
	Denylist          []string
	MineAttributes    bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

const (
	LimiterAdaptive = "adaptive"
	LimiterSimple   = "simple"
	LimiterToken    = "token"
	LimiterNone     = "none"
)

// Load reads the environment after applying the given .env files (".env"
// when none are given). Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getIntOrDefault("SERVER_PORT", 8080),
			RequestTimeout: getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			AllowedOrigins: getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Fetch: FetchConfig{
			Timeout:           getDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
			UserAgent:         getEnvOrDefault("FETCH_USER_AGENT", defaultUserAgent),
			Limiter:           strings.ToLower(getEnvOrDefault("FETCH_LIMITER", LimiterAdaptive)),
			RateLimitMin:      getDurationOrDefault("FETCH_RATE_LIMIT_MIN", 500*time.Millisecond),
			RateLimitMax:      getDurationOrDefault("FETCH_RATE_LIMIT_MAX", 2*time.Second),
			RequestsPerSecond: getFloatOrDefault("FETCH_REQUESTS_PER_SECOND", 2),
			Burst:             getIntOrDefault("FETCH_BURST", 1),
			Concurrency:       getIntOrDefault("FETCH_CONCURRENCY", 4),
		},
		Cache: CacheConfig{
			Enabled:       getBoolOrDefault("CACHE_ENABLED", false),
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
			TTL:           getDurationOrDefault("CACHE_TTL", 6*time.Hour),
		},
		Normalize: Profile{
			Vendor:            getEnvOrDefault("VENDOR", "default"),
			DimensionPatterns: getStringSliceOrDefault("DIMENSION_PATTERNS", nil),
			WeightPatterns:    getStringSliceOrDefault("WEIGHT_PATTERNS", nil),
			Strategy:          strings.ToLower(getEnvOrDefault("MATCH_STRATEGY", "first")),
			Denylist:          getStringSliceOrDefault("ATTRIBUTE_DENYLIST", nil),
			MineAttributes:    getBoolOrDefault("MINE_ATTRIBUTES", false),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}

	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be at least 1")
	}

	if c.Fetch.RateLimitMin > c.Fetch.RateLimitMax {
		return fmt.Errorf("FETCH_RATE_LIMIT_MIN cannot be greater than FETCH_RATE_LIMIT_MAX")
	}

	switch c.Fetch.Limiter {
	case LimiterAdaptive, LimiterSimple, LimiterNone:
	case LimiterToken:
		if c.Fetch.RequestsPerSecond <= 0 {
			return fmt.Errorf("FETCH_REQUESTS_PER_SECOND must be positive for the token limiter")
		}
	default:
		return fmt.Errorf("unknown FETCH_LIMITER: %s", c.Fetch.Limiter)
	}

	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_ENABLED is set")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("CACHE_TTL must be positive")
		}
	}

	switch c.Normalize.Strategy {
	case "first", "last":
	default:
		return fmt.Errorf("MATCH_STRATEGY must be first or last, got %s", c.Normalize.Strategy)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL: %s", c.Logging.Level)
	}

	return nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getStringSliceOrDefault splits a comma separated value, trimming entries
// and dropping empty ones.
func getStringSliceOrDefault(key string, defaultValue []string) []string {
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
