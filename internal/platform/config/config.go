package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	ShutdownTimeout time.Duration

	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds the relational store settings. An empty URL selects
// the in-memory stores, which is the development default.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the consent-check cache settings. An empty URL disables
// the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("HEALTHGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            addr,
		JWTSigningKey:   jwtSigningKey,
		ShutdownTimeout: envDuration("HEALTHGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		Postgres: PostgresConfig{
			URL:             os.Getenv("HEALTHGATE_POSTGRES_URL"),
			MaxOpenConns:    envInt("HEALTHGATE_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("HEALTHGATE_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("HEALTHGATE_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("HEALTHGATE_REDIS_URL"),
			PoolSize:     envInt("HEALTHGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("HEALTHGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("HEALTHGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("HEALTHGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("HEALTHGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("HEALTHGATE_CONSENT_CACHE_TTL", 30*time.Second),
		},
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
