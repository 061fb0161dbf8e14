package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.LoopbackURL)
	assert.Equal(t, "BTC", cfg.Currency)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SubaccountCacheTTL)
	assert.Equal(t, "session", cfg.SessionCookie)
	assert.True(t, cfg.ChargesNegative)
	assert.True(t, cfg.RevenueSince.IsZero())
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MINERHOST_LUXOR_API_KEY", "from-env")
	t.Setenv("MINERHOST_CALL_TIMEOUT", "5s")
	t.Setenv("MINERHOST_REVENUE_SINCE", "2024-01-01")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.String("currency", "BTC", "")
	require.NoError(t, flags.Parse([]string{"--addr=0.0.0.0:9090", "--currency=zec"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LuxorAPIKey)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.RevenueSince)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "http://127.0.0.1:9090", cfg.LoopbackURL)
	assert.Equal(t, "ZEC", cfg.Currency)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
use-memory: true
session-secret: s3cret
loopback-url: http://internal:8080
stream-interval: 10s
`), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.True(t, cfg.UseMemory)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.Equal(t, "http://internal:8080", cfg.LoopbackURL)
	assert.Equal(t, 10*time.Second, cfg.StreamInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadRevenueSince(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MINERHOST_REVENUE_SINCE", "last month")

	_, err := Load("", nil)
	assert.ErrorContains(t, err, "revenue-since")
}

func TestValidate(t *testing.T) {
	err := Config{CallTimeout: time.Second, StreamInterval: time.Second}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session-secret")
	assert.Contains(t, err.Error(), "pg-dsn")

	err = Config{SessionSecret: "x", UseMemory: true}.Validate()
	assert.ErrorContains(t, err, "call-timeout")
}
