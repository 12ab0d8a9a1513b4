package config

import (
	"time"

	"agentdesk/internal/api"
)

// Config is the top-level configuration structure for agentdesk.
type Config struct {
	// BaseURL is the API server root, e.g. http://localhost:8000.
	BaseURL string `yaml:"baseURL"`
	// Timeout bounds each non-streamed request.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// StreamTimeout bounds a whole streamed answer. Zero means no limit.
	StreamTimeout time.Duration `yaml:"streamTimeout,omitempty"`

	// CredentialsFile is where tokens are persisted (default: ~/.config/agentdesk/credentials.json).
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	// MemoryCredentials keeps tokens in memory only; nothing survives the process.
	MemoryCredentials bool `yaml:"memoryCredentials,omitempty"`

	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"` // text or json

	Endpoints api.Endpoints `yaml:"endpoints,omitempty"`
}
