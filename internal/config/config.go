package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable: strings for identifiers and secrets, ints for
// durations and costs.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	DBUser      string // database username
	DBPass      string // database password (optional)
	DBHost      string // database host address
	DBPort      string // database port number
	DBName      string // database name
	JWTSecret   string // secret used to sign JWTs
	TokenTTLMin int    // access token time-to-live in minutes
	BcryptCost  int    // bcrypt cost for password hashing
	AMQPURL     string // RabbitMQ URL; empty disables the counter consumer
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must(); a missing value causes
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		DBUser:      must("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      must("DB_HOST"),
		DBPort:      must("DB_PORT"),
		DBName:      must("DB_NAME"),
		JWTSecret:   must("JWT_SECRET"),
		TokenTTLMin: mustInt("TOKEN_TTL_MIN"),
		BcryptCost:  mustInt("BCRYPT_COST"),
		AMQPURL:     firstEnv("RABBITMQ_URL", "AMQP_URL"),
	}
}

// CacheConfig defines settings for the public response cache middleware.
// Caching is disabled when Enabled is false or no redis client is available.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults apply when variables are unset.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		TTL:          parseDur(getenv("CACHE_TTL", "30s")),
		Prefix:       getenv("CACHE_PREFIX", "cache"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

// RateLimitConfig defines the token-bucket limiter parameters.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadRateLimitConfig reads environment variables to build a RateLimitConfig
// and clamps nonsensical values to safe minimums.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Capacity:       atoi(getenv("RATE_LIMIT_CAPACITY", "60")),
		RefillTokens:   atoi(getenv("RATE_LIMIT_REFILL_TOKENS", "1")),
		RefillInterval: parseDur(getenv("RATE_LIMIT_REFILL_INTERVAL", "1s")),
		TTL:            parseDur(getenv("RATE_LIMIT_TTL", "10m")),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
