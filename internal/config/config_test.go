package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CAMPUSHUB_AUTH_SECRET", "test-secret")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.Store != StoreMemory {
		t.Fatalf("unexpected store: %s", cfg.Store)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected token ttl: %s", cfg.TokenTTL)
	}
}

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("CAMPUSHUB_AUTH_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error without auth secret")
	}
}

func TestFromEnvBackendRequirements(t *testing.T) {
	t.Setenv("CAMPUSHUB_AUTH_SECRET", "test-secret")

	t.Setenv("CAMPUSHUB_STORE", StorePostgres)
	t.Setenv("CAMPUSHUB_PG_DSN", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error without postgres DSN")
	}

	t.Setenv("CAMPUSHUB_PG_DSN", "postgres://localhost/campushub")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Store != StorePostgres {
		t.Fatalf("unexpected store: %s", cfg.Store)
	}

	t.Setenv("CAMPUSHUB_STORE", "etcd")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CAMPUSHUB_AUTH_SECRET", "test-secret")
	t.Setenv("CAMPUSHUB_ADDR", ":9090")
	t.Setenv("CAMPUSHUB_TOKEN_TTL", "2h")
	t.Setenv("CAMPUSHUB_RATE_BURST", "50")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.TokenTTL != 2*time.Hour || cfg.RateBurst != 50 {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
}
