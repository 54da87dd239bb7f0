package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "db", "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "local", cfg.Payments.Provider)
	assert.Equal(t, "usd", cfg.Payments.Currency)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval())
	assert.Equal(t, 15*time.Minute, cfg.OTPTTL())
	assert.Equal(t, 5, cfg.OTPMaxAttempts())
	assert.Equal(t, 10*time.Second, cfg.DeliveryTimeout())
	size, workers := cfg.DeliveryQueue()
	assert.Equal(t, 256, size)
	assert.Equal(t, 2, workers)
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadExpandsEnvAndSecrets(t *testing.T) {
	t.Setenv("IH_SWEEP", "5")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "x.db")+`
scheduler:
  sweep_interval_seconds: ${IH_SWEEP}
payments:
  provider: stripe
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval())
	assert.Equal(t, "stripe", cfg.Payments.Provider)
	assert.Equal(t, "s3cret", cfg.Secrets.JWTSecret)
	assert.Equal(t, "whsec_test", cfg.Secrets.StripeWebhookSecret)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
