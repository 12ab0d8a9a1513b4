package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"agentdesk/internal/apierror"
	"agentdesk/internal/client"
	"agentdesk/internal/credential"
	"agentdesk/internal/metrics"
)

const (
	// DefaultChunkSize is the read buffer size, which bounds the size of a
	// single fragment.
	DefaultChunkSize = 4096

	// maxErrorBodyBytes bounds how much of a rejected response is read.
	maxErrorBodyBytes = 64 << 10
)

// Client opens streamed responses. Unlike client.Client it never refreshes
// credentials: a partially delivered body cannot be replayed.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      credential.Store
	logger     *slog.Logger
	metrics    metrics.Recorder
	userAgent  string
	chunkSize  int
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout, if any, bounds the
// whole stream, not just the response headers.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the telemetry recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = recorder
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithChunkSize sets the maximum fragment size.
func WithChunkSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// New creates a stream client for the API at baseURL.
func New(baseURL string, store credential.Store, opts ...Option) (*Client, error) {
	u, err := client.ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		store:      store,
		logger:     slog.Default(),
		metrics:    metrics.Noop{},
		userAgent:  "agentdesk",
		chunkSize:  DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Open POSTs payload to path and returns the response body as a Stream.
//
// The credential held by the store at call time is attached. Any non-2xx
// status, 401 included, is returned as *apierror.RequestError before a
// Stream exists; a 2xx without a body is ErrNoBody.
//
// Cancelling ctx ends the stream; the next read reports a
// *StreamTransportError wrapping context.Canceled.
func (c *Client) Open(ctx context.Context, path string, payload *client.Multipart) (*Stream, error) {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		data, ct, err := payload.Encode()
		if err != nil {
			return nil, fmt.Errorf("POST %s: %w", path, err)
		}
		body, contentType = bytes.NewReader(data), ct
	}

	target := client.ResolveURL(c.baseURL, path, nil)
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(client.RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if cred, ok := c.store.Get(); ok {
		cred.OAuth2Token().SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		c.metrics.ObserveRequest(http.MethodPost, 0, time.Since(start))
		c.metrics.ObserveStream(metrics.StreamFailed, 0)
		return nil, apierror.ClassifyNetworkError(err, target)
	}
	c.metrics.ObserveRequest(http.MethodPost, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = resp.Body.Close()
		cancel()
		c.metrics.ObserveStream(metrics.StreamRejected, 0)
		c.logger.Debug("Stream rejected",
			"path", path,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return nil, apierror.NewRequestError(http.MethodPost, path, resp.StatusCode, data)
	}

	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		cancel()
		c.metrics.ObserveStream(metrics.StreamRejected, 0)
		return nil, fmt.Errorf("POST %s: %w", path, ErrNoBody)
	}

	c.logger.Debug("Stream opened",
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	return newStream(resp.Body, cancel, c.chunkSize, requestID, c.logger, c.metrics), nil
}
