package credential

import (
	"sync"

	"golang.org/x/oauth2"
)

// DefaultTokenType is the token type assumed when the server omits one.
const DefaultTokenType = "bearer"

// Credential is the token pair issued by the API server on login or refresh.
// Both tokens are opaque; nothing in this package inspects them.
type Credential struct {
	// AccessToken is the short-lived token attached to every API call.
	AccessToken string `json:"access_token"`

	// RefreshToken is used solely to obtain a new access token.
	RefreshToken string `json:"refresh_token"`

	// TokenType is typically "bearer".
	TokenType string `json:"token_type"`
}

// IsZero reports whether the credential carries no access token.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// OAuth2Token converts the credential to an oauth2.Token so callers can use
// Token.SetAuthHeader and Token.Type for the Authorization header.
func (c Credential) OAuth2Token() *oauth2.Token {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    tokenType,
	}
}

// String never prints token values.
func (c Credential) String() string {
	if c.IsZero() {
		return "credential{empty}"
	}
	return "credential{[REDACTED]}"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (c Credential) GoString() string {
	return c.String()
}

// Store holds the current credential for a session.
//
// Get reports ok == false when no credential is present, which means
// "unauthenticated". Set and Clear are last-writer-wins. Implementations must
// be safe for concurrent use.
type Store interface {
	Get() (Credential, bool)
	Set(Credential) error
	Clear() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	cred Credential
	set  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates an in-memory store holding cred.
func NewMemoryStoreWith(cred Credential) *MemoryStore {
	s := &MemoryStore{}
	_ = s.Set(cred)
	return s
}

// Get returns the current credential.
func (s *MemoryStore) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.set
}

// Set replaces the current credential. A credential without an access token
// is treated the same as Clear.
func (s *MemoryStore) Set(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred.IsZero() {
		s.cred, s.set = Credential{}, false
		return nil
	}
	s.cred, s.set = cred, true
	return nil
}

// Clear removes the current credential.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred, s.set = Credential{}, false
	return nil
}

// Ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
