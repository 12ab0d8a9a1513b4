package api

import (
	"context"
	"net/url"
)

// Message is one entry of a chat session.
type Message struct {
	Role       string   `json:"role"`
	Content    string   `json:"content"`
	Type       string   `json:"type,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	References []string `json:"references,omitempty"`
}

// Session is a stored conversation.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt string    `json:"created_at,omitempty"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// History wraps the chat history endpoints.
type History struct {
	sender Sender
}

// NewHistory creates the history API.
func NewHistory(sender Sender) *History {
	return &History{sender: sender}
}

// Create starts a new session seeded with the server's greeting.
func (h *History) Create(ctx context.Context) (Session, error) {
	return post[Session](ctx, h.sender, "/app_history/create", nil)
}

// List returns the current user's sessions.
func (h *History) List(ctx context.Context) ([]Session, error) {
	return get[[]Session](ctx, h.sender, "/app_history/list", nil)
}

// Load returns one session with its messages.
func (h *History) Load(ctx context.Context, sessionID string) (Session, error) {
	return get[Session](ctx, h.sender, "/app_history/load", url.Values{"session_id": {sessionID}})
}

// Delete removes a session.
func (h *History) Delete(ctx context.Context, sessionID string) error {
	_, err := post[any](ctx, h.sender, "/app_history/delete", sessionID)
	return err
}
