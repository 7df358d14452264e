package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ADMIN_API_TOKEN", "admin-token")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0 0 1 * *", cfg.Billing.CronSpec)
	assert.Equal(t, 8, cfg.Billing.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Billing.UserTimeout)
	assert.Equal(t, time.Hour, cfg.Billing.RunLockTTL)
	assert.Equal(t, 5*time.Minute, cfg.Security.APIKeyCacheTTL)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ADMIN_API_TOKEN", "admin-token")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BILLING_CONCURRENCY", "2")
	t.Setenv("BILLING_USER_TIMEOUT", "45s")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/billing")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Billing.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Billing.UserTimeout)
	assert.Equal(t, "https://hooks.example.com/billing", cfg.Webhook.URL)
}

func TestLoadConfigRequiredFields(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "admin-token")
	t.Setenv("DB_PASSWORD", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ADMIN_API_TOKEN", "")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ADMIN_API_TOKEN", "admin-token")
	t.Setenv("BILLING_CONCURRENCY", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvAsDurationFallsBack(t *testing.T) {
	t.Setenv("SOME_DURATION", "not-a-duration")
	assert.Equal(t, 15*time.Second, getEnvAsDuration("SOME_DURATION", "15s"))
}
