package config

import (
	"os"
	"path/filepath"
	"testing"

	"NeoNest/internal/calc/tpn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv(env(map[string]string{"TOKEN_KEY": "k"}))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "data/neonest.db", c.DBPath)
	assert.Equal(t, "admin", c.AdminUser)
	assert.False(t, c.Debug)
	assert.Equal(t, tpn.Defaults(), c.TPNDefaults)
}

func TestFromEnvErrors(t *testing.T) {
	_, err := FromEnv(env(nil))
	assert.EqualError(t, err, "TOKEN_KEY environment variable is not set")

	_, err = FromEnv(env(map[string]string{"TOKEN_KEY": "k", "NEONEST_DEBUG": "maybe"}))
	assert.Error(t, err)

	_, err = FromEnv(env(map[string]string{"TOKEN_KEY": "k", "NEONEST_TLS_CERT": "c.pem"}))
	assert.Error(t, err)
}

func TestDefaultsFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "defaults.yaml")
	require.NoError(t, os.WriteFile(good, []byte("tfr: 120\nsyringeCount: 3\nnaSource: CRL\n"), 0o600))

	c, err := FromEnv(env(map[string]string{"TOKEN_KEY": "k", "NEONEST_DEFAULTS": good, "NEONEST_DEBUG": "true"}))
	require.NoError(t, err)
	assert.True(t, c.Debug)
	assert.Equal(t, 120.0, c.TPNDefaults.TFR)
	assert.Equal(t, 3, c.TPNDefaults.SyringeCount)
	assert.Equal(t, tpn.NaCRL, c.TPNDefaults.NaSource)
	assert.Equal(t, 1000.0, c.TPNDefaults.WeightG, "unset keys keep factory values")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("weightG: 0\n"), 0o600))
	_, err = LoadDefaults(bad)
	assert.ErrorContains(t, err, "Weight must be greater than 0.")

	_, err = LoadDefaults(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
