// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// MaxUploadBytes bounds accepted batch files.
	MaxUploadBytes int64

	// StuckThreshold is how long a batch may sit in PROCESSING before the
	// sweeper flags it as stuck.
	StuckThreshold time.Duration

	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig configures the optional Redis-backed rate limit counters.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional Postgres batch store. An empty URL
// selects the in-memory stores.
type PostgresConfig struct {
	URL string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("REALNAME_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:           addr,
		MaxUploadBytes: envInt64("REALNAME_MAX_UPLOAD_BYTES", 10<<20),
		StuckThreshold: envDuration("REALNAME_STUCK_THRESHOLD", 30*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("REALNAME_REDIS_URL"),
			PoolSize:     int(envInt64("REALNAME_REDIS_POOL_SIZE", 10)),
			MinIdleConns: int(envInt64("REALNAME_REDIS_MIN_IDLE", 2)),
			DialTimeout:  envDuration("REALNAME_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REALNAME_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REALNAME_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("REALNAME_POSTGRES_URL"),
		},
	}
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
