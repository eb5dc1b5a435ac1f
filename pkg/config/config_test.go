package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StorePostgres, cfg.Fees.Store)
	assert.True(t, cfg.Fees.FallbackPrimary.Equal(decimal.NewFromInt(1500)))
	assert.True(t, cfg.Fees.FallbackDefault.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Reconcile.Cron)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.Timeout)
	assert.Equal(t, "Administrator", cfg.Bootstrap.AdminName)
	assert.Empty(t, cfg.Bootstrap.AdminEmail)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LEDGER_STORE", "MEMORY")
	t.Setenv("FEES_FALLBACK_PRIMARY", "1200.50")
	t.Setenv("FEES_FALLBACK_DEFAULT", "-1")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("RECONCILE_CRON", " @every 1h ")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", " bursar@school.test ")
	t.Setenv("DB_AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Fees.Store)
	assert.Equal(t, "1200.5", cfg.Fees.FallbackPrimary.String())
	assert.True(t, cfg.Fees.FallbackDefault.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "@every 1h", cfg.Reconcile.Cron)
	assert.Equal(t, "bursar@school.test", cfg.Bootstrap.AdminEmail)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("nope", time.Minute))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
