package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.True(t, cfg.UsesDefaultDSN())
	assert.Equal(t, 10, cfg.Stock.LowStockThreshold)
	assert.False(t, cfg.Stock.AllowNegativeStock)
	assert.Equal(t, 20*time.Second, cfg.Stock.ScanThrottleTTL)
	assert.Equal(t, "@every 1m", cfg.Stock.ScanSchedule)
	assert.Equal(t, 1, cfg.Jobs.Workers)
	assert.Equal(t, 16, cfg.Jobs.QueueSize)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LOW_STOCK_THRESHOLD", "5")
	t.Setenv("SCAN_THROTTLE_TTL", "45s")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Stock.LowStockThreshold)
	assert.Equal(t, 45*time.Second, cfg.Stock.ScanThrottleTTL)
	assert.True(t, cfg.Stock.AllowNegativeStock)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JOB_WORKERS", "many")

	_, err := Load()
	assert.ErrorContains(t, err, "JOB_WORKERS")
}

func TestValidateThrottleTTL(t *testing.T) {
	cfg := &Config{
		HTTPPort:  "8080",
		JWTSecret: testSecret,
		Stock:     StockConfig{ScanSchedule: "@every 1m"},
		Jobs:      JobsConfig{Workers: 1, QueueSize: 1},
	}
	assert.ErrorContains(t, cfg.Validate(), "SCAN_THROTTLE_TTL")
}
