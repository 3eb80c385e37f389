package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := ParseArgs("server", []string{"-c", filepath.Join(t.TempDir(), "missing.json")}, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, "", opts.DatabaseDSN)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "@hourly", opts.CleanSpec)
	assert.Equal(t, 30*24*time.Hour, opts.Retention)
}

func TestParseArgs_FileFlagsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server_address":"file:1","database_dsn":"file-dsn","log_level":"debug","retention":"48h","clean_spec":"@daily"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Run("file over defaults", func(t *testing.T) {
		opts, err := ParseArgs("server", []string{"-c", path}, envFrom(nil))
		require.NoError(t, err)
		assert.Equal(t, "file:1", opts.Port)
		assert.Equal(t, "file-dsn", opts.DatabaseDSN)
		assert.Equal(t, "debug", opts.LogLevel)
		assert.Equal(t, "@daily", opts.CleanSpec)
		assert.Equal(t, 48*time.Hour, opts.Retention)
	})

	t.Run("flags over file", func(t *testing.T) {
		opts, err := ParseArgs("server", []string{"-c", path, "-a", "flag:2", "-retention", "1h"}, envFrom(nil))
		require.NoError(t, err)
		assert.Equal(t, "flag:2", opts.Port)
		assert.Equal(t, time.Hour, opts.Retention)
		assert.Equal(t, "file-dsn", opts.DatabaseDSN)
	})

	t.Run("env over everything", func(t *testing.T) {
		env := envFrom(map[string]string{
			"CONFIG":         path,
			"SERVER_ADDRESS": "env:3",
			"DATABASE_DSN":   "env-dsn",
			"LOG_LEVEL":      "warn",
		})
		opts, err := ParseArgs("server", []string{"-a", "flag:2"}, env)
		require.NoError(t, err)
		assert.Equal(t, "env:3", opts.Port)
		assert.Equal(t, "env-dsn", opts.DatabaseDSN)
		assert.Equal(t, "warn", opts.LogLevel)
		assert.Equal(t, path, opts.Config)
	})
}

func TestParseArgs_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err := ParseArgs("server", []string{"-c", bad}, envFrom(nil))
	assert.Error(t, err)

	badRetention := filepath.Join(dir, "retention.json")
	require.NoError(t, os.WriteFile(badRetention, []byte(`{"retention":"soon"}`), 0o600))
	_, err = ParseArgs("server", []string{"-c", badRetention}, envFrom(nil))
	assert.Error(t, err)

	_, err = ParseArgs("server", []string{"-unknown"}, envFrom(nil))
	assert.Error(t, err)
}
