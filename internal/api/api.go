package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"agentdesk/internal/client"
)

// Sender dispatches one authenticated call; *client.Client implements it.
type Sender interface {
	Send(ctx context.Context, method, path string, body any, opts ...client.RequestOption) (*client.Response, error)
}

// Endpoints holds the server paths used by the API wrappers.
type Endpoints struct {
	Login    string `yaml:"login"`
	Register string `yaml:"register"`
	Refresh  string `yaml:"refresh"`
	Me       string `yaml:"me"`
	Logout   string `yaml:"logout"`
	Stream   string `yaml:"stream"`
	Ask      string `yaml:"ask"`
}

// DefaultEndpoints returns the paths served by the agent platform.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/auth/token",
		Register: "/auth/register",
		Refresh:  client.DefaultRefreshPath,
		Me:       "/auth/users/me",
		Logout:   "/auth/logout",
		Stream:   "/chat/ask_a2a_streaming",
		Ask:      "/chat/ask-agent",
	}
}

// WithDefaults fills empty paths from DefaultEndpoints.
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Register == "" {
		e.Register = d.Register
	}
	if e.Refresh == "" {
		e.Refresh = d.Refresh
	}
	if e.Me == "" {
		e.Me = d.Me
	}
	if e.Logout == "" {
		e.Logout = d.Logout
	}
	if e.Stream == "" {
		e.Stream = d.Stream
	}
	if e.Ask == "" {
		e.Ask = d.Ask
	}
	return e
}

// envelope is the server's {"data": ...} response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

// call sends a request and decodes the unwrapped data field into a T. A reply
// without a body, or without data, yields the zero T.
func call[T any](ctx context.Context, s Sender, method, path string, body any, opts ...client.RequestOption) (T, error) {
	var out envelope[T]
	resp, err := s.Send(ctx, method, path, body, opts...)
	if err != nil {
		return out.Data, err
	}
	if len(resp.Body) == 0 {
		return out.Data, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out.Data, fmt.Errorf("%s %s: failed to parse response: %w", method, path, err)
	}
	return out.Data, nil
}

func get[T any](ctx context.Context, s Sender, path string, query url.Values) (T, error) {
	var opts []client.RequestOption
	if len(query) > 0 {
		opts = append(opts, client.WithQuery(query))
	}
	return call[T](ctx, s, http.MethodGet, path, nil, opts...)
}

func post[T any](ctx context.Context, s Sender, path string, body any) (T, error) {
	return call[T](ctx, s, http.MethodPost, path, body)
}
