package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"http_address":                    "www.example:9000",
		"database_dsn":                    "postgres://x",
		"access_token_secret":             "a-secret",
		"access_token_validity_duration":  "10m",
		"refresh_token_secret":            "r-secret",
		"refresh_token_validity_duration": "48h",
		"password_cost":                   12,
		"cookie_secure":                   false,
		"s3_bucket":                       "bucket",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "www.example:9000", cfg.HTTPAddress)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "a-secret", cfg.AccessTokenSecret)
		assert.Equal(t, 10*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, "r-secret", cfg.RefreshTokenSecret)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 12, cfg.PasswordCost)
		assert.False(t, cfg.CookieSecure)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "us-east-1", cfg.S3Region, "absent keys keep defaults")
	})

	t.Run("no config flag leaves config alone", func(t *testing.T) {
		cfg := &Config{HTTPAddress: "defaults:1234"}
		require.NoError(t, parseJson(cfg, []string{"-a", "x"}))
		assert.Equal(t, "defaults:1234", cfg.HTTPAddress)
	})

	t.Run("invalid json", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ not json`), 0o600))
		require.Error(t, parseJson(&Config{}, []string{"-c", bad}))
	})

	t.Run("missing file", func(t *testing.T) {
		require.Error(t, parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")}))
	})
}
