package session

import (
	"encoding/json"

	"agentdesk/internal/api"
)

// Secret wraps a sensitive string so it never ends up in logs or output by
// accident.
type Secret struct {
	value string
}

// NewSecret wraps value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Value returns the wrapped string. Never log the result.
func (s Secret) Value() string {
	return s.value
}

// IsSet reports whether a non-empty value is wrapped.
func (s Secret) IsSet() bool {
	return s.value != ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v.
func (s Secret) GoString() string {
	return "session.Secret{[REDACTED]}"
}

// MarshalJSON writes the redacted form.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// User is the sanitized profile of the signed-in user. Password fields from
// the server are dropped and the LLM key is wrapped.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CoreLLMName string `json:"core_llm_name,omitempty"`
	CoreLLMURL  string `json:"core_llm_url,omitempty"`
	CoreLLMKey  Secret `json:"core_llm_key"`
}

// Sanitize converts a server profile into a User.
func Sanitize(p api.Profile) User {
	return User{
		ID:          p.ID,
		Name:        p.Name,
		CoreLLMName: p.CoreLLMName,
		CoreLLMURL:  p.CoreLLMURL,
		CoreLLMKey:  NewSecret(p.CoreLLMKey),
	}
}
