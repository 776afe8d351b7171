// Package config loads all runtime configuration from the environment
// so main stays lean. Every knob has a development default; production
// deployments override via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full gateway configuration.
type Config struct {
	Addr string

	// Subscriber identity stamped on outgoing callback contexts.
	BppID  string
	BppURI string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Callback CallbackConfig

	// PersistAttempts and PersistBackoff govern primary record saves.
	PersistAttempts int
	PersistBackoff  time.Duration
}

// PostgresConfig selects the durable store. Empty DSN means in-memory
// stores, which is the development default.
type PostgresConfig struct {
	DSN string
}

// RedisConfig selects the transaction state store. Empty URL means the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the trail mirror. No brokers means no mirroring.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CallbackConfig governs outgoing on_<action> deliveries.
type CallbackConfig struct {
	Timeout time.Duration

	// SigningSeed is a base64 ed25519 seed; empty disables signing.
	SigningSeed  string
	SigningKeyID string
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Addr:   getenv("SELLERGATE_ADDR", ":8080"),
		BppID:  getenv("SELLERGATE_BPP_ID", "seller-gateway.local"),
		BppURI: getenv("SELLERGATE_BPP_URI", "http://localhost:8080"),
		Postgres: PostgresConfig{
			DSN: os.Getenv("SELLERGATE_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("SELLERGATE_REDIS_URL"),
			PoolSize:     getenvInt("SELLERGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("SELLERGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("SELLERGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("SELLERGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("SELLERGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("SELLERGATE_KAFKA_BROKERS")),
			Topic:   getenv("SELLERGATE_KAFKA_TOPIC", "sellergate.trail"),
		},
		Callback: CallbackConfig{
			Timeout:      getenvDuration("SELLERGATE_CALLBACK_TIMEOUT", 10*time.Second),
			SigningSeed:  os.Getenv("SELLERGATE_SIGNING_SEED"),
			SigningKeyID: getenv("SELLERGATE_SIGNING_KEY_ID", "key1"),
		},
		PersistAttempts: getenvInt("SELLERGATE_PERSIST_ATTEMPTS", 3),
		PersistBackoff:  getenvDuration("SELLERGATE_PERSIST_BACKOFF", 500*time.Millisecond),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
