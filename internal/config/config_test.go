package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
    t.Setenv("JWT_SECRET", "s")

    cfg, err := Parse()
    require.NoError(t, err)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, BackendMySQL, cfg.StorageBackend)
    assert.Equal(t, 5*time.Second, cfg.Ledger.Timeout)
    assert.Equal(t, 3, cfg.Ledger.MaxRetries)
    assert.Equal(t, 5, cfg.DB.LockWaitTimeoutSec)
    assert.False(t, cfg.Broker.Enabled)
}

func TestParseOverrides(t *testing.T) {
    t.Setenv("JWT_SECRET", "s")
    t.Setenv("STORAGE_BACKEND", "memory")
    t.Setenv("LEDGER_TIMEOUT", "750ms")
    t.Setenv("LEDGER_MAX_RETRIES", "-2")
    t.Setenv("BOOKING_EVENTS_ENABLED", "true")

    cfg, err := Parse()
    require.NoError(t, err)
    assert.Equal(t, BackendMemory, cfg.StorageBackend)
    assert.Equal(t, 750*time.Millisecond, cfg.Ledger.Timeout)
    assert.Zero(t, cfg.Ledger.MaxRetries)
    assert.True(t, cfg.Broker.Enabled)
}

func TestParseRejects(t *testing.T) {
    t.Run("missing secret", func(t *testing.T) {
        t.Setenv("JWT_SECRET", "")
        _, err := Parse()
        assert.ErrorIs(t, err, errMissingSecret)
    })
    t.Run("unknown backend", func(t *testing.T) {
        t.Setenv("JWT_SECRET", "s")
        t.Setenv("STORAGE_BACKEND", "postgres")
        _, err := Parse()
        assert.ErrorIs(t, err, errUnknownBackend)
    })
    t.Run("bad duration", func(t *testing.T) {
        t.Setenv("JWT_SECRET", "s")
        t.Setenv("LEDGER_TIMEOUT", "soon")
        _, err := Parse()
        assert.Error(t, err)
    })
}

func TestRateLimitNormalize(t *testing.T) {
    cfg := RateLimitConfig{Capacity: 0, RefillTokens: -1, RefillInterval: 0, TTL: time.Second}.normalize()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 1, cfg.RefillTokens)
    assert.Equal(t, time.Second, cfg.RefillInterval)
    assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head ,")
    cfg := LoadCacheConfig()
    assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
}
