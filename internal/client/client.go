package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentdesk/internal/apierror"
	"agentdesk/internal/credential"
	"agentdesk/internal/metrics"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultRefreshPath is the token refresh endpoint.
	DefaultRefreshPath = "/auth/refresh-token"

	// maxResponseBytes bounds how much of a response body is buffered.
	maxResponseBytes = 32 << 20

	// RequestIDHeader carries a per-attempt identifier for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Client is the request dispatcher. It attaches the current bearer
// credential to every call and recovers from exactly one failure class: a
// 401 that a single token refresh can fix.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	store       credential.Store
	logger      *slog.Logger
	metrics     metrics.Recorder
	userAgent   string
	refreshPath string

	coordinator *Coordinator
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
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

// WithRefreshPath overrides the token refresh endpoint path.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates a dispatcher for the API at baseURL using store for credentials.
func New(baseURL string, store credential.Store, opts ...Option) (*Client, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: DefaultHTTPTimeout},
		store:       store,
		logger:      slog.Default(),
		metrics:     metrics.Noop{},
		userAgent:   "agentdesk",
		refreshPath: DefaultRefreshPath,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.coordinator = NewCoordinator(store, c.refreshCredential,
		WithCoordinatorLogger(c.logger),
		WithCoordinatorMetrics(c.metrics),
	)

	return c, nil
}

// ParseBaseURL validates an API base URL.
func ParseBaseURL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}
	return u, nil
}

// ResolveURL joins path and query onto base.
func ResolveURL(base *url.URL, path string, query url.Values) string {
	u := base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Coordinator returns the refresh coordinator guarding this client.
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// OnAuthExpired registers fn to be notified, in its own goroutine, whenever a
// refresh fails and the local credentials are dropped.
func (c *Client) OnAuthExpired(fn func(error)) {
	c.coordinator.OnExpired(fn)
}

// Send issues one logical call. body is encoded according to its type (see
// encodeBody). A 2xx reply is returned as a Response; any other status is a
// *apierror.RequestError and a transport failure is a *apierror.NetworkError.
//
// A 401 on a request that is not itself a refresh enters the refresh
// coordinator; on success the request is replayed exactly once with the new
// token and its outcome is final.
func (c *Client) Send(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	req := &request{method: method, path: path, body: body}
	for _, opt := range opts {
		opt(req)
	}

	encoded, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	cred, _ := c.store.Get()
	resp, err := c.attempt(ctx, req, encoded, cred)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && req.canRefresh() {
		c.logger.Debug("Request rejected with 401, entering refresh coordinator",
			"method", method,
			"path", path,
			"request_id", resp.RequestID,
		)

		renewed, err := c.coordinator.Renew(ctx, cred.AccessToken)
		if err != nil {
			return nil, err
		}

		// The replay's outcome is final: a second 401 is returned below.
		resp, err = c.attempt(ctx, req, encoded, renewed)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierror.NewRequestError(method, path, resp.StatusCode, resp.Body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		RequestID:  resp.RequestID,
	}, nil
}

// Get is shorthand for Send with GET and optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...RequestOption) (*Response, error) {
	if len(query) > 0 {
		opts = append([]RequestOption{WithQuery(query)}, opts...)
	}
	return c.Send(ctx, http.MethodGet, path, nil, opts...)
}

// Post is shorthand for Send with POST.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodPost, path, body, opts...)
}

// attempt performs one HTTP exchange with cred attached and reads the body.
// Any status is returned as a Response; only transport failures are errors.
func (c *Client) attempt(ctx context.Context, req *request, body *encodedBody, cred credential.Credential) (*Response, error) {
	target := ResolveURL(c.baseURL, req.path, req.query)

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body.reader())
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if !req.anonymous && !cred.IsZero() {
		cred.OAuth2Token().SetAuthHeader(httpReq)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.method, 0, time.Since(start))
		c.logger.Debug("HTTP request failed",
			"method", req.method,
			"path", req.path,
			"request_id", requestID,
			"error", err.Error(),
		)
		return nil, apierror.ClassifyNetworkError(err, target)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(req.method, httpResp.StatusCode, elapsed)
	if err != nil {
		return nil, apierror.ClassifyNetworkError(fmt.Errorf("failed to read response body: %w", err), target)
	}

	c.logger.Debug("HTTP request completed",
		"method", req.method,
		"path", req.path,
		"status", httpResp.StatusCode,
		"request_id", requestID,
		"duration", elapsed,
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

// refreshRequest is the body of the token refresh call.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshCredential calls the refresh endpoint. It is the coordinator's
// RefreshFunc and is never entered recursively: the call is marked as a
// refresh so its own 401 is returned as a RequestError.
func (c *Client) refreshCredential(ctx context.Context, refreshToken string) (credential.Credential, error) {
	return SendJSON[credential.Credential](ctx, c, http.MethodPost, c.refreshPath,
		refreshRequest{RefreshToken: refreshToken}, asRefresh())
}
