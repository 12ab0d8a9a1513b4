package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// EventType is the kind of a frame sent by the agent stream.
type EventType string

const (
	// EventText carries (part of) the agent's answer.
	EventText EventType = "text"
	// EventDoc carries a link to a generated document, such as a forecast CSV.
	EventDoc EventType = "doc"
	// EventImage carries a link to a generated image.
	EventImage EventType = "img"
	// EventError reports a server-side failure while producing the answer.
	EventError EventType = "error"
)

// Event is one decoded frame.
type Event struct {
	Type EventType `json:"event"`
	Data string    `json:"data"`
}

// ServerEventError is returned by Event.Err for error frames.
type ServerEventError struct {
	Data string
}

// Error implements the error interface.
func (e *ServerEventError) Error() string {
	return fmt.Sprintf("agent reported an error: %s", e.Data)
}

// Err returns a *ServerEventError for error frames and nil otherwise.
func (e Event) Err() error {
	if e.Type == EventError {
		return &ServerEventError{Data: e.Data}
	}
	return nil
}

// ErrMalformedFrame is wrapped by errors for frames that are not valid JSON events.
var ErrMalformedFrame = errors.New("malformed frame")

// ParseFrame decodes a single frame. SSE "data:" lines are unwrapped and
// "event:", "id:", "retry:" and comment lines are ignored. A non-string data
// value is kept as its raw JSON text.
func ParseFrame(frame []byte) (Event, error) {
	payload := unwrapSSE(frame)
	if len(payload) == 0 {
		return Event{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	var raw struct {
		Event EventType       `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if raw.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event type", ErrMalformedFrame)
	}

	ev := Event{Type: raw.Event}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		var s string
		if err := json.Unmarshal(raw.Data, &s); err == nil {
			ev.Data = s
		} else {
			ev.Data = string(raw.Data)
		}
	}
	return ev, nil
}

func unwrapSSE(frame []byte) []byte {
	frame = bytes.TrimSpace(frame)
	if !bytes.HasPrefix(frame, []byte("data:")) &&
		!bytes.HasPrefix(frame, []byte("event:")) &&
		!bytes.HasPrefix(frame, []byte(":")) {
		return frame
	}

	var data [][]byte
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = append(data, bytes.TrimPrefix(rest, []byte(" ")))
		}
	}
	return bytes.TrimSpace(bytes.Join(data, []byte("\n")))
}

// ChunkSource yields raw body fragments; *stream.Stream implements it.
type ChunkSource interface {
	Next() ([]byte, error)
}

// Decoder splits a chunk sequence into frames separated by a blank line and
// decodes each. Frames may span chunk boundaries.
type Decoder struct {
	src ChunkSource
	buf []byte
	eof bool
}

// NewDecoder returns a decoder reading from src.
func NewDecoder(src ChunkSource) *Decoder {
	return &Decoder{src: src}
}

// Next returns the next event. At the end of the source a trailing frame
// without a separator is still decoded; then io.EOF is returned. Errors from
// the source are returned unchanged.
func (d *Decoder) Next() (Event, error) {
	for {
		if frame, ok := d.cut(); ok {
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			return ParseFrame(frame)
		}

		if d.eof {
			rest := bytes.TrimSpace(d.buf)
			d.buf = nil
			if len(rest) == 0 {
				return Event{}, io.EOF
			}
			return ParseFrame(rest)
		}

		chunk, err := d.src.Next()
		if errors.Is(err, io.EOF) {
			d.eof = true
			continue
		}
		if err != nil {
			return Event{}, err
		}
		d.buf = append(d.buf, chunk...)
	}
}

// cut removes the first complete frame from the buffer.
func (d *Decoder) cut() ([]byte, bool) {
	idx, sepLen := bytes.Index(d.buf, []byte("\n\n")), 2
	if crlf := bytes.Index(d.buf, []byte("\r\n\r\n")); crlf >= 0 && (idx < 0 || crlf < idx) {
		idx, sepLen = crlf, 4
	}
	if idx < 0 {
		return nil, false
	}
	frame := bytes.Clone(d.buf[:idx])
	d.buf = d.buf[idx+sepLen:]
	return frame, true
}

// Events returns an iterator over the remaining events. Iteration stops at
// the end of the source or after yielding the first error.
func (d *Decoder) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}
