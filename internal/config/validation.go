package config

import (
	"fmt"
	"strings"

	"agentdesk/internal/client"
	"agentdesk/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// validatePath checks that an endpoint path is absolute.
func validatePath(field, value string) error {
	if !strings.HasPrefix(value, "/") {
		return ValidationError{Field: field, Value: value, Message: "must start with '/'"}
	}
	return nil
}

// Validate checks the configuration and returns ValidationErrors listing
// every problem found.
func (c Config) Validate() error {
	var errs ValidationErrors

	if _, err := client.ParseBaseURL(c.BaseURL); err != nil {
		errs.Add("baseURL", err.Error(), c.BaseURL)
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must not be negative", c.Timeout)
	}
	if c.StreamTimeout < 0 {
		errs.Add("streamTimeout", "must not be negative", c.StreamTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs.Add("logLevel", err.Error(), c.LogLevel)
	}
	if err := ValidateOneOf("logFormat", c.LogFormat, []string{"text", "json"}); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.MemoryCredentials && c.CredentialsFile != "" {
		errs.Add("credentialsFile", "cannot be set together with memoryCredentials", c.CredentialsFile)
	}

	ep := c.Endpoints.WithDefaults()
	for field, value := range map[string]string{
		"endpoints.login":    ep.Login,
		"endpoints.register": ep.Register,
		"endpoints.refresh":  ep.Refresh,
		"endpoints.me":       ep.Me,
		"endpoints.logout":   ep.Logout,
		"endpoints.stream":   ep.Stream,
		"endpoints.ask":      ep.Ask,
	} {
		if err := validatePath(field, value); err != nil {
			errs = append(errs, err.(ValidationError))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
