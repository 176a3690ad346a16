package config

import (
	"testing"
	"time"
)

func TestLoadEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LOT_LOCK_TTL", "not-a-duration")
	t.Setenv("REDIS_DB", "x")

	cfg := LoadEnv()
	if cfg.Redis.LockTTL != 5*time.Second {
		t.Errorf("Expected default lock ttl 5s, got %v", cfg.Redis.LockTTL)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("Expected default redis db 0, got %d", cfg.Redis.DB)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOT_LOCK_TTL", "250ms")
	t.Setenv("LOGGER_DISABLE_CALLER", "true")

	cfg := LoadEnv()
	if cfg.App.AppEnv != "production" {
		t.Errorf("Expected production, got %s", cfg.App.AppEnv)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.SQLitePath != "/tmp/ledger.db" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 3 {
		t.Errorf("Unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Redis.LockTTL != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.Redis.LockTTL)
	}
	if !cfg.Logger.DisableCaller {
		t.Error("Expected caller disabled")
	}
}
