package config

import (
	"time"

	"agentdesk/internal/api"
)

const (
	// DefaultBaseURL is the address of a locally running API server.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		LogLevel:  "info",
		LogFormat: "text",
		Endpoints: api.DefaultEndpoints(),
	}
}
