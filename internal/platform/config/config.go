// Package config builds the service configuration from environment
// variables so main stays lean. Every knob has a development default;
// production deployments override through the environment.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures everything cmd/server needs to wire the registry.
type Server struct {
	// Addr is the HTTP listen address.
	Addr string

	// InstanceID identifies this registry deployment. Signed mint
	// payloads bind to it, so changing it invalidates outstanding
	// signatures for this deployment.
	InstanceID string

	// AuthMode selects the mint authorization gate: "capability" or
	// "signature".
	AuthMode string

	// DatabaseURL is the PostgreSQL DSN. Empty runs the in-memory
	// store (development only; state dies with the process).
	DatabaseURL string

	// Redis configures the optional wrap-record read cache.
	Redis RedisConfig

	// KafkaBrokers and KafkaTopic configure the mint event sink.
	// No brokers means events drain to the structured log.
	KafkaBrokers []string
	KafkaTopic   string

	// JWTSigningKey signs and verifies caller bearer tokens.
	JWTSigningKey string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// OutboxInterval is how often the event worker drains staged
	// mint notifications.
	OutboxInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// RedisConfig carries the read-cache connection settings. An empty URL
// disables the cache entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("WRAP_REGISTRY_ADDR", ":8080"),
		InstanceID:    envOr("WRAP_REGISTRY_INSTANCE_ID", "wrapreg-local"),
		AuthMode:      envOr("WRAP_REGISTRY_AUTH_MODE", "capability"),
		DatabaseURL:   os.Getenv("WRAP_REGISTRY_DATABASE_URL"),
		Redis:         redisFromEnv(),
		KafkaBrokers:  splitList(os.Getenv("WRAP_REGISTRY_KAFKA_BROKERS")),
		KafkaTopic:    envOr("WRAP_REGISTRY_KAFKA_TOPIC", "wrapregistry.mints"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LogLevel:      envOr("WRAP_REGISTRY_LOG_LEVEL", "info"),

		OutboxInterval:  durationOr("WRAP_REGISTRY_OUTBOX_INTERVAL", 500*time.Millisecond),
		ShutdownTimeout: durationOr("WRAP_REGISTRY_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("WRAP_REGISTRY_REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationOr parses a Go duration from the environment, keeping the
// fallback on empty or malformed values rather than failing startup.
func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// splitList turns a comma-separated env value into trimmed entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
