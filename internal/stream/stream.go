package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"agentdesk/internal/metrics"
)

var (
	// ErrStreamAlreadyConsumed is returned when a stream that reached EOF,
	// failed or was closed is read again.
	ErrStreamAlreadyConsumed = errors.New("stream already consumed")

	// ErrNoBody is returned by Open when the server accepted the request but
	// sent no response body.
	ErrNoBody = errors.New("stream response has no body")
)

// StreamTransportError means the connection failed after the stream was
// opened. Chunks delivered before the failure remain valid.
type StreamTransportError struct {
	// Delivered is the number of bytes handed to the consumer before the failure.
	Delivered int
	// Err is the underlying read error.
	Err error
}

// Error implements the error interface.
func (e *StreamTransportError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", e.Delivered, e.Err)
}

// Unwrap returns the underlying read error.
func (e *StreamTransportError) Unwrap() error {
	return e.Err
}

// Stream is a single-pass sequence of response body fragments. It must be
// closed if not read to the end; Chunks closes it automatically.
type Stream struct {
	body      io.ReadCloser
	cancel    context.CancelFunc
	requestID string
	logger    *slog.Logger
	metrics   metrics.Recorder

	// readMu serializes Next. Close never takes it so it can interrupt a
	// blocked read.
	readMu  sync.Mutex
	buf     []byte
	pending error
	done    bool

	closed    atomic.Bool
	iterated  atomic.Bool
	delivered atomic.Int64
	endOnce   sync.Once
}

func newStream(body io.ReadCloser, cancel context.CancelFunc, chunkSize int, requestID string, logger *slog.Logger, recorder metrics.Recorder) *Stream {
	return &Stream{
		body:      body,
		cancel:    cancel,
		requestID: requestID,
		logger:    logger,
		metrics:   recorder,
		buf:       make([]byte, chunkSize),
	}
}

// RequestID returns the X-Request-ID sent with the streaming request.
func (s *Stream) RequestID() string {
	return s.requestID
}

// Delivered returns the number of bytes handed to the consumer so far.
func (s *Stream) Delivered() int {
	return int(s.delivered.Load())
}

// Next returns the next fragment of the body in arrival order. It returns
// io.EOF once the body is complete, and ErrStreamAlreadyConsumed on any call
// after the stream ended, failed or was closed.
func (s *Stream) Next() ([]byte, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.done || s.closed.Load() {
		return nil, ErrStreamAlreadyConsumed
	}

	for {
		if err := s.pending; err != nil {
			return nil, s.fail(err)
		}

		n, err := s.body.Read(s.buf)
		if s.closed.Load() {
			s.done = true
			return nil, ErrStreamAlreadyConsumed
		}
		// A reader may return data together with an error; the error is
		// reported on the following call.
		s.pending = err
		if n > 0 {
			s.delivered.Add(int64(n))
			return bytes.Clone(s.buf[:n]), nil
		}
	}
}

// fail ends the stream after a read error. Must be called with readMu held.
func (s *Stream) fail(err error) error {
	s.done = true

	if errors.Is(err, io.EOF) {
		s.end(metrics.StreamCompleted)
		return io.EOF
	}

	outcome := metrics.StreamFailed
	if errors.Is(err, context.Canceled) {
		outcome = metrics.StreamCancelled
	}
	s.end(outcome)

	s.logger.Debug("Stream interrupted",
		"request_id", s.requestID,
		"delivered", s.Delivered(),
		"error", err.Error(),
	)
	return &StreamTransportError{Delivered: s.Delivered(), Err: err}
}

// Chunks returns an iterator over the remaining fragments. A read failure is
// yielded once as the final element. Breaking out of the loop closes the
// stream. A stream can be ranged over only once.
func (s *Stream) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if !s.iterated.CompareAndSwap(false, true) {
			yield(nil, ErrStreamAlreadyConsumed)
			return
		}
		defer s.Close()

		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Close releases the connection. It returns once the request has been
// cancelled and the body closed; any concurrent or later Next fails with
// ErrStreamAlreadyConsumed. Close is idempotent.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.end(metrics.StreamCancelled)
	return nil
}

// end releases the transport and records the outcome. Only the first
// outcome is recorded.
func (s *Stream) end(outcome string) {
	s.endOnce.Do(func() {
		s.cancel()
		_ = s.body.Close()
		s.metrics.ObserveStream(outcome, s.Delivered())
		s.logger.Debug("Stream released",
			"request_id", s.requestID,
			"outcome", outcome,
			"delivered", s.Delivered(),
		)
	})
}
