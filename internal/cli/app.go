package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"agentdesk/internal/api"
	"agentdesk/internal/chat"
	"agentdesk/internal/client"
	"agentdesk/internal/config"
	"agentdesk/internal/credential"
	"agentdesk/internal/metrics"
	"agentdesk/internal/session"
	"agentdesk/internal/stream"
	"agentdesk/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
)

// App bundles the components a command needs, wired against one
// configuration and one credential store.
type App struct {
	Config config.Config

	Store   credential.Store
	Client  *client.Client
	Streams *stream.Client
	Chat    *chat.Client

	Auth    *api.Auth
	Agents  *api.Agents
	History *api.History
	MCP     *api.MCP

	Session *session.Facade
	Guard   *session.Guard

	// Registry holds the request, refresh and stream metrics of this process.
	Registry *prometheus.Registry
}

type appOptions struct {
	store            credential.Store
	httpClient       *http.Client
	streamHTTPClient *http.Client
	userAgent        string
}

// AppOption configures NewApp.
type AppOption func(*appOptions)

// WithStore uses store instead of the one selected by the configuration.
func WithStore(store credential.Store) AppOption {
	return func(o *appOptions) {
		o.store = store
	}
}

// WithHTTPClient sets the client used for non-streamed requests.
func WithHTTPClient(httpClient *http.Client) AppOption {
	return func(o *appOptions) {
		o.httpClient = httpClient
	}
}

// WithStreamHTTPClient sets the client used for streamed responses.
func WithStreamHTTPClient(httpClient *http.Client) AppOption {
	return func(o *appOptions) {
		o.streamHTTPClient = httpClient
	}
}

// newStreamHTTPClient returns a client without an overall deadline that
// gives up when no response headers arrive within timeout. A zero timeout
// waits indefinitely.
func newStreamHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(userAgent string) AppOption {
	return func(o *appOptions) {
		o.userAgent = userAgent
	}
}

// LoadConfig resolves the effective configuration: file, then environment,
// then flags. The result is validated.
func LoadConfig(flags *CommandFlags, getenv func(string) string) (config.Config, error) {
	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err = config.ApplyEnv(cfg, getenv)
	if err != nil {
		return config.Config{}, err
	}
	if flags.BaseURL != "" {
		cfg.BaseURL = flags.BaseURL
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// InitLogging configures pkg/logging from cfg, writing to w.
func InitLogging(cfg config.Config, w io.Writer) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	logging.Init(level, logging.Format(cfg.LogFormat), w)
}

// NewApp wires the dispatcher, stream client, API wrappers and session
// facade. Refresh failures seen by the dispatcher invalidate the session.
func NewApp(cfg config.Config, opts ...AppOption) (*App, error) {
	o := appOptions{
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		streamHTTPClient: newStreamHTTPClient(cfg.Timeout),
		userAgent:        "agentdesk",
	}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = openStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(registry)
	endpoints := cfg.Endpoints.WithDefaults()

	c, err := client.New(cfg.BaseURL, store,
		client.WithHTTPClient(o.httpClient),
		client.WithLogger(logging.Logger("Client")),
		client.WithMetrics(recorder),
		client.WithRefreshPath(endpoints.Refresh),
		client.WithUserAgent(o.userAgent),
	)
	if err != nil {
		return nil, err
	}

	streams, err := stream.New(cfg.BaseURL, store,
		stream.WithHTTPClient(o.streamHTTPClient),
		stream.WithLogger(logging.Logger("Stream")),
		stream.WithMetrics(recorder),
		stream.WithUserAgent(o.userAgent),
	)
	if err != nil {
		return nil, err
	}

	auth := api.NewAuth(c, endpoints)
	facade := session.New(auth, store, session.WithLogger(logging.Logger("Session")))
	c.OnAuthExpired(facade.HandleAuthExpired)

	return &App{
		Config:   cfg,
		Store:    store,
		Client:   c,
		Streams:  streams,
		Chat:     chat.NewClient(streams, endpoints.Stream),
		Auth:     auth,
		Agents:   api.NewAgents(c, endpoints),
		History:  api.NewHistory(c),
		MCP:      api.NewMCP(c),
		Session:  facade,
		Guard:    session.NewGuard(facade),
		Registry: registry,
	}, nil
}

func openStore(cfg config.Config) (credential.Store, error) {
	if cfg.MemoryCredentials {
		return credential.NewMemoryStore(), nil
	}
	return credential.NewFileStore(cfg.CredentialsFile,
		credential.WithFileLogger(logging.Logger("CredentialStore")))
}

// WatchCredentials follows changes other processes make to a file-backed
// store until ctx is done. It is a no-op for in-memory stores.
func (a *App) WatchCredentials(ctx context.Context) {
	fs, ok := a.Store.(*credential.FileStore)
	if !ok {
		return
	}
	go func() {
		if err := fs.Watch(ctx); err != nil {
			logging.Warn("CredentialStore", "Not watching %s for changes: %v", fs.Path(), err)
		}
	}()
}

// Getenv is the environment lookup used by LoadConfig outside tests.
var Getenv = os.Getenv
