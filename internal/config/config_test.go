package config

import (
	"encoding/base64"
	"os"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClarifyShortURLBaseDisableHttps(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	err := values.clarifyShortURLBase()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", values.ShortURLBase)
}

func TestClarifyShortURLBaseEnableHttps(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	values.EnableHTTPS = true

	err := values.clarifyShortURLBase()
	require.NoError(t, err)

	assert.Equal(t, "https://localhost", values.ShortURLBase)
}

func TestClarifyShortURLBaseEnableHttpsAltPort(t *testing.T) {
	values := Config{}

	err := env.Parse(&values)
	require.NoError(t, err)

	values.EnableHTTPS = true

	values.ShortURLBase = "http://localhost:447"

	err = values.clarifyShortURLBase()
	require.NoError(t, err)

	assert.Equal(t, values.ShortURLBase, "https://localhost:447")
}

const testJSON = `{
	"server_address": ":3000",
	"base_url": "http://json-config.com",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"enable_https": true,
	"session_ttl": "1h"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "https://json-config.com", cfg.ShortURLBase)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.True(t, cfg.EnableHTTPS)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("BASE_URL", "http://env.com")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "https://env.com", cfg.ShortURLBase)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("BASE_URL", "http://env.com")

	cfg, err := New(WithArgs([]string{"-a", ":6000", "-b", "http://cli.com"}))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "https://cli.com", cfg.ShortURLBase)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("BASE_URL", "http://envonly.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "http://envonly.com", cfg.ShortURLBase)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigFileFromFlag(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)

	cfg, err := New(WithArgs([]string{"-c", jsonPath, "-a", ":6001"}))
	require.NoError(t, err)

	assert.Equal(t, ":6001", cfg.RunAddr)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, jsonPath, cfg.ConfigFile)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := New(WithArgs([]string{}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "session", cfg.SessionCookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.ShortIDGenerationAttempts)
	assert.Empty(t, cfg.SessionSigningKeys)

	_, err = cfg.DecodedSigningKeys()
	assert.ErrorIs(t, err, ErrNoSigningKeys)
}

func TestSigningKeysFromEnvAndFlags(t *testing.T) {
	first := base64.URLEncoding.EncodeToString([]byte("first-key"))
	second := base64.URLEncoding.EncodeToString([]byte("second-key"))
	t.Setenv("SESSION_SIGNING_KEYS", first+","+second)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	keys, err := cfg.DecodedSigningKeys()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("first-key"), []byte("second-key")}, keys)

	cfg, err = New(WithArgs([]string{"-k", second + ", " + first}))
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, cfg.SessionSigningKeys)
}

func TestBlankSigningKeysAreIgnored(t *testing.T) {
	t.Setenv("SESSION_SIGNING_KEYS", " , ")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Empty(t, cfg.SessionSigningKeys)

	_, err = cfg.DecodedSigningKeys()
	assert.ErrorIs(t, err, ErrNoSigningKeys)
}

func TestConfigValidation(t *testing.T) {
	t.Run("log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		_, err := New(WithDisableFlagsParsing(true))
		assert.Error(t, err)
	})

	t.Run("trusted subnet", func(t *testing.T) {
		_, err := New(WithArgs([]string{"-t", "not-a-cidr"}))
		assert.Error(t, err)
	})

	t.Run("signing key", func(t *testing.T) {
		_, err := New(WithArgs([]string{"-k", "%%%"}))
		assert.Error(t, err)
	})

	t.Run("storage directory", func(t *testing.T) {
		_, err := New(WithArgs([]string{"-f", "/definitely/missing/dir/db.json"}))
		assert.Error(t, err)
	})
}

func TestLookupConfigFlag(t *testing.T) {
	assert.Equal(t, "a.json", lookupConfigFlag([]string{"-a", ":1", "-c", "a.json"}))
	assert.Equal(t, "b.json", lookupConfigFlag([]string{"--c=b.json"}))
	assert.Equal(t, "", lookupConfigFlag([]string{"-a", "c"}))
	assert.Equal(t, "", lookupConfigFlag([]string{"-c"}))
}
