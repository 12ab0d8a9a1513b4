package chat

import (
	"context"
	"io"
	"strconv"
	"strings"

	"agentdesk/internal/client"
	"agentdesk/internal/stream"
)

// DefaultStreamPath is the streaming ask endpoint.
const DefaultStreamPath = "/chat/ask_a2a_streaming"

// Attachment is a file sent along with a question.
type Attachment struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// AskRequest is one question to the user's agents.
type AskRequest struct {
	Question  string
	SessionID string

	// TimeSeries asks the server to run a forecast on the attached CSV.
	TimeSeries bool
	// DocAnalysis asks the server to analyse the attached document.
	DocAnalysis bool

	File *Attachment
}

// Payload builds the multipart form the streaming endpoint expects.
func (r AskRequest) Payload() *client.Multipart {
	m := client.NewMultipart().
		Field("question", r.Question).
		Field("session_id", r.SessionID).
		Field("isTimeSeries", strconv.FormatBool(r.TimeSeries)).
		Field("isDocAnalysis", strconv.FormatBool(r.DocAnalysis))
	if r.File != nil && r.File.Content != nil {
		m.File("files", r.File.Name, r.File.ContentType, r.File.Content)
	}
	return m
}

// StreamOpener opens a streamed response; *stream.Client implements it.
type StreamOpener interface {
	Open(ctx context.Context, path string, payload *client.Multipart) (*stream.Stream, error)
}

// Client asks questions over the streaming endpoint.
type Client struct {
	streams StreamOpener
	path    string
}

// NewClient creates a chat client. An empty path uses DefaultStreamPath.
func NewClient(streams StreamOpener, path string) *Client {
	if path == "" {
		path = DefaultStreamPath
	}
	return &Client{streams: streams, path: path}
}

// Reply is the event sequence of one answer. It must be closed.
type Reply struct {
	*Decoder
	stream *stream.Stream
}

// Close releases the underlying stream.
func (r *Reply) Close() error {
	return r.stream.Close()
}

// RequestID returns the request identifier of the underlying stream.
func (r *Reply) RequestID() string {
	return r.stream.RequestID()
}

// Ask sends req and returns its reply as soon as the server accepts it.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*Reply, error) {
	s, err := c.streams.Open(ctx, c.path, req.Payload())
	if err != nil {
		return nil, err
	}
	return &Reply{Decoder: NewDecoder(s), stream: s}, nil
}

// Collect reads every event of the reply, concatenating text events into
// the answer and gathering document and image links. The first error event
// or read error is returned with whatever was collected before it.
func Collect(reply *Reply) (Answer, error) {
	defer reply.Close()

	var (
		a    Answer
		text strings.Builder
	)
	for ev, err := range reply.Events() {
		if err != nil {
			a.Text = text.String()
			return a, err
		}
		switch ev.Type {
		case EventText:
			text.WriteString(ev.Data)
		case EventDoc:
			a.Documents = append(a.Documents, ev.Data)
		case EventImage:
			a.Images = append(a.Images, ev.Data)
		case EventError:
			a.Text = text.String()
			return a, ev.Err()
		}
	}
	a.Text = text.String()
	return a, nil
}

// Answer is a fully collected reply.
type Answer struct {
	Text      string
	Documents []string
	Images    []string
}
