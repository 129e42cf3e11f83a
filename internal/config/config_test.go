package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "STORE_DRIVER", "AUDIT_SIGNING_KEY", "REDIS_ADDR", "PUBLISHER_BUFFER", "RATE_LIMIT_PER_SECOND"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Contains(t, cfg.DatabaseURL, "postgres://")
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.SessionPurgeInterval)
	assert.Nil(t, cfg.AuditSigningKey)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 256, cfg.PublisherBuffer)
	assert.Equal(t, 5.0, cfg.RateLimitPerSecond)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("AUDIT_SIGNING_KEY", "00ff")
	t.Setenv("PUBLISHER_BUFFER", "not-a-number")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/ledger.db", cfg.SQLitePath)
	assert.Equal(t, []byte{0x00, 0xff}, cfg.AuditSigningKey)
	assert.Equal(t, 256, cfg.PublisherBuffer)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.RateLimitBurst)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("signing key", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "")
		t.Setenv("AUDIT_SIGNING_KEY", "zz")
		_, err := Load()
		assert.Error(t, err)
	})
}
