// Package config provides configuration management for agentdesk.
//
// Configuration is read from a single YAML file, ~/.config/agentdesk/config.yaml
// by default or the path given with the --config flag. A missing file is not
// an error; every field has a default.
//
// # Configuration File
//
//	baseURL: http://localhost:8000
//	timeout: 30s
//	logLevel: info
//	credentialsFile: /home/me/.config/agentdesk/credentials.json
//	endpoints:
//	  login: /auth/token
//	  refresh: /auth/refresh-token
//
// # Environment
//
// ApplyEnv overrides file values with AGENTDESK_BASE_URL, AGENTDESK_LOG_LEVEL,
// AGENTDESK_CREDENTIALS_FILE, AGENTDESK_MEMORY_CREDENTIALS and
// AGENTDESK_TIMEOUT. Command-line flags take precedence over both.
//
// # Validation
//
// Config.Validate reports every problem at once as ValidationErrors.
package config
