package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"agentdesk/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/agentdesk"
	configFileName = "config.yaml"
)

// Environment variables that override the file.
const (
	EnvBaseURL           = "AGENTDESK_BASE_URL"
	EnvLogLevel          = "AGENTDESK_LOG_LEVEL"
	EnvCredentialsFile   = "AGENTDESK_CREDENTIALS_FILE"
	EnvMemoryCredentials = "AGENTDESK_MEMORY_CREDENTIALS"
	EnvTimeout           = "AGENTDESK_TIMEOUT"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/agentdesk/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// LoadConfig loads the configuration file at path, or the default path when
// empty. A missing file is not an error: the defaults are returned. Fields
// absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	config := GetDefaultConfig()

	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return config, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", path)
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config.Endpoints = config.Endpoints.WithDefaults()

	logging.Debug("ConfigLoader", "Loaded configuration from %s", path)
	return config, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func ApplyEnv(config Config, getenv func(string) string) (Config, error) {
	if v := getenv(EnvBaseURL); v != "" {
		config.BaseURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
	if v := getenv(EnvCredentialsFile); v != "" {
		config.CredentialsFile = v
	}
	if v := getenv(EnvMemoryCredentials); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return config, fmt.Errorf("%s: %w", EnvMemoryCredentials, err)
		}
		config.MemoryCredentials = b
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return config, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		config.Timeout = d
	}
	return config, nil
}

// Save writes config to path as YAML, creating the directory if needed.
func Save(config Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}
