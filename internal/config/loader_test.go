package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/internal/api"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_DefaultPath(t *testing.T) {
	home := t.TempDir()
	original := osUserHomeDir
	osUserHomeDir = func() (string, error) { return home, nil }
	defer func() { osUserHomeDir = original }()

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "agentdesk", "config.yaml"), path)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("baseURL: https://agents.example.com\n"), 0600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://agents.example.com", cfg.BaseURL)
}

func TestLoadConfig_HomeDirError(t *testing.T) {
	original := osUserHomeDir
	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
	defer func() { osUserHomeDir = original }()

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
baseURL: https://agents.example.com
timeout: 5s
streamTimeout: 10m
logLevel: debug
endpoints:
  login: /v2/auth/token
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://agents.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.StreamTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "unset fields keep defaults")
	assert.Equal(t, "/v2/auth/token", cfg.Endpoints.Login)
	assert.Equal(t, api.DefaultEndpoints().Refresh, cfg.Endpoints.Refresh)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "baseURL: [unterminated\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBaseURL:           "http://10.0.0.5:8000",
		EnvLogLevel:          "warn",
		EnvCredentialsFile:   "/tmp/creds.json",
		EnvMemoryCredentials: "false",
		EnvTimeout:           "1m",
	}
	cfg, err := ApplyEnv(GetDefaultConfig(), func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8000", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/creds.json", cfg.CredentialsFile)
	assert.False(t, cfg.MemoryCredentials)
	assert.Equal(t, time.Minute, cfg.Timeout)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	_, err := ApplyEnv(GetDefaultConfig(), func(k string) string {
		if k == EnvMemoryCredentials {
			return "sometimes"
		}
		return ""
	})
	assert.Error(t, err)

	_, err = ApplyEnv(GetDefaultConfig(), func(k string) string {
		if k == EnvTimeout {
			return "soon"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", configFileName)
	cfg := GetDefaultConfig()
	cfg.BaseURL = "https://agents.example.com"
	cfg.MemoryCredentials = true

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
