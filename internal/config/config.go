// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends selectable via CAMPUSHUB_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds everything the API binary needs at startup.
type Config struct {
	Addr  string
	Store string

	// Postgres
	PGDSN string

	// Mongo
	MongoURI string
	MongoDB  string

	// Auth
	AuthSecret string
	TokenTTL   time.Duration

	// HTTP limits
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
}

// FromEnv builds a Config from CAMPUSHUB_* variables, falling back to
// local-development defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:         getEnv("CAMPUSHUB_ADDR", ":8080"),
		Store:        getEnv("CAMPUSHUB_STORE", StoreMemory),
		PGDSN:        os.Getenv("CAMPUSHUB_PG_DSN"),
		MongoURI:     os.Getenv("CAMPUSHUB_MONGO_URI"),
		MongoDB:      getEnv("CAMPUSHUB_MONGO_DB", "campushub"),
		AuthSecret:   os.Getenv("CAMPUSHUB_AUTH_SECRET"),
		TokenTTL:     getDuration("CAMPUSHUB_TOKEN_TTL", 24*time.Hour),
		RateBurst:    getInt("CAMPUSHUB_RATE_BURST", 20),
		RatePerSec:   getInt("CAMPUSHUB_RATE_PER_SEC", 10),
		MaxBodyBytes: int64(getInt("CAMPUSHUB_MAX_BODY_BYTES", 1<<20)),
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.PGDSN == "" {
			return Config{}, fmt.Errorf("CAMPUSHUB_PG_DSN is required when CAMPUSHUB_STORE=%s", StorePostgres)
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("CAMPUSHUB_MONGO_URI is required when CAMPUSHUB_STORE=%s", StoreMongo)
		}
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("CAMPUSHUB_AUTH_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
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

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
