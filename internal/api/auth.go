package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"agentdesk/internal/client"
	"agentdesk/internal/credential"
)

// UserCreate is the registration request.
type UserCreate struct {
	Name        string `json:"name"`
	Password    string `json:"password"`
	CoreLLMName string `json:"core_llm_name,omitempty"`
	CoreLLMURL  string `json:"core_llm_url,omitempty"`
	CoreLLMKey  string `json:"core_llm_key,omitempty"`
}

// Profile is the user record as returned by the server. It may carry
// secrets; session.Sanitize turns it into a User safe to keep around.
type Profile struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	CoreLLMName    string `json:"core_llm_name,omitempty"`
	CoreLLMURL     string `json:"core_llm_url,omitempty"`
	CoreLLMKey     string `json:"core_llm_key,omitempty"`
	Password       string `json:"password,omitempty"`
	HashedPassword string `json:"hashed_password,omitempty"`
}

// Auth wraps the authentication endpoints.
type Auth struct {
	sender    Sender
	endpoints Endpoints
}

// NewAuth creates the authentication API.
func NewAuth(sender Sender, endpoints Endpoints) *Auth {
	return &Auth{sender: sender, endpoints: endpoints.WithDefaults()}
}

// Login exchanges a username and password for tokens. It is sent without a
// bearer header and a 401 is returned as-is: it means the password was wrong.
func (a *Auth) Login(ctx context.Context, username, password string) (credential.Credential, error) {
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"grant_type": {"password"},
	}
	cred, err := decode[credential.Credential](ctx, a.sender, http.MethodPost, a.endpoints.Login, form,
		client.WithoutAuth(), client.WithoutRefresh())
	if err != nil {
		return credential.Credential{}, err
	}
	if cred.AccessToken == "" {
		return credential.Credential{}, errors.New("login response carried no access token")
	}
	return cred, nil
}

// Register creates a new account.
func (a *Auth) Register(ctx context.Context, user UserCreate) (Profile, error) {
	return decode[Profile](ctx, a.sender, http.MethodPost, a.endpoints.Register, user,
		client.WithoutAuth(), client.WithoutRefresh())
}

// Me fetches the current user's profile.
func (a *Auth) Me(ctx context.Context) (Profile, error) {
	return decode[Profile](ctx, a.sender, http.MethodGet, a.endpoints.Me, nil)
}

// Logout tells the server the session ends. A rejected token is not
// refreshed just to log out.
func (a *Auth) Logout(ctx context.Context) error {
	_, err := a.sender.Send(ctx, http.MethodPost, a.endpoints.Logout, nil, client.WithoutRefresh())
	return err
}

// decode sends a request whose reply is a bare JSON object.
func decode[T any](ctx context.Context, s Sender, method, path string, body any, opts ...client.RequestOption) (T, error) {
	var out T
	resp, err := s.Send(ctx, method, path, body, opts...)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return out, nil
}
