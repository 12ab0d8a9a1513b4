package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"agentdesk/internal/apierror"
	"agentdesk/internal/credential"
	"agentdesk/internal/metrics"
)

// RefreshState is the coordinator's observable state.
type RefreshState int

const (
	// RefreshIdle means no renewal is in flight.
	RefreshIdle RefreshState = iota
	// RefreshRefreshing means one renewal is in flight and new callers join it.
	RefreshRefreshing
)

// String returns the string representation of the refresh state.
func (s RefreshState) String() string {
	switch s {
	case RefreshIdle:
		return "idle"
	case RefreshRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// RefreshFunc exchanges a refresh token for a new credential.
type RefreshFunc func(ctx context.Context, refreshToken string) (credential.Credential, error)

// refreshKey is the singleflight key; there is one credential per store.
const refreshKey = "refresh"

// Coordinator performs at most one concurrent token renewal per credential
// store. Every caller that observes a 401 while a renewal is in flight waits
// on that same renewal and receives its outcome.
//
// It is only entered reactively, from the dispatcher's 401 path.
type Coordinator struct {
	store   credential.Store
	refresh RefreshFunc
	logger  *slog.Logger
	metrics metrics.Recorder

	// mu orders a caller's stale-token check and flight registration against
	// the flight's write to the store, so a caller either joins the flight or
	// observes its result, never neither.
	mu    sync.Mutex
	group singleflight.Group

	refreshing atomic.Bool

	listenersMu sync.RWMutex
	listeners   []func(error)
}

// CoordinatorOption configures the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets a custom logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithCoordinatorMetrics sets the telemetry recorder.
func WithCoordinatorMetrics(recorder metrics.Recorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = recorder
	}
}

// NewCoordinator creates a coordinator renewing credentials in store with refresh.
func NewCoordinator(store credential.Store, refresh RefreshFunc, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:   store,
		refresh: refresh,
		logger:  slog.Default(),
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports whether a renewal is currently in flight.
func (c *Coordinator) State() RefreshState {
	if c.refreshing.Load() {
		return RefreshRefreshing
	}
	return RefreshIdle
}

// OnExpired registers fn to be called, in its own goroutine, every time a
// renewal fails and the store is cleared.
func (c *Coordinator) OnExpired(fn func(error)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Renew returns a credential to replay a request that was rejected with 401
// while carrying staleAccessToken.
//
// If the store already holds a different access token, a renewal completed
// after the request was sent and that credential is returned without any
// network call. Otherwise the caller joins the in-flight renewal or starts
// one. On failure the store is cleared and a *apierror.AuthExpiredError is
// returned to every waiter.
//
// The renewal itself is not bound to ctx: one caller giving up must not fail
// the others. Cancelling ctx only stops this caller from waiting.
func (c *Coordinator) Renew(ctx context.Context, staleAccessToken string) (credential.Credential, error) {
	c.mu.Lock()
	if current, ok := c.store.Get(); ok && current.AccessToken != staleAccessToken {
		c.mu.Unlock()
		c.metrics.ObserveRefresh(metrics.RefreshSkipped)
		return current, nil
	}
	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		return c.renew(context.WithoutCancel(ctx))
	})
	c.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return credential.Credential{}, res.Err
		}
		return res.Val.(credential.Credential), nil
	case <-ctx.Done():
		return credential.Credential{}, ctx.Err()
	}
}

// renew runs inside the single flight.
func (c *Coordinator) renew(ctx context.Context) (credential.Credential, error) {
	c.refreshing.Store(true)
	defer c.refreshing.Store(false)

	current, ok := c.store.Get()
	if !ok || current.RefreshToken == "" {
		c.metrics.ObserveRefresh(metrics.RefreshNoToken)
		c.logger.Info("No refresh token available, dropping session")
		return credential.Credential{}, c.expire(nil)
	}

	c.logger.Debug("Refreshing access token")

	renewed, err := c.refresh(ctx, current.RefreshToken)
	if err == nil && renewed.AccessToken == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		c.logger.Info("Token refresh failed, dropping session", "error", err.Error())
		return credential.Credential{}, c.expire(err)
	}

	// Servers that do not rotate refresh tokens omit it from the reply.
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = current.RefreshToken
	}
	if renewed.TokenType == "" {
		renewed.TokenType = current.TokenType
	}

	c.mu.Lock()
	err = c.store.Set(renewed)
	c.mu.Unlock()
	if err != nil {
		// Waiters still replay with the new token; the next process start
		// will see the old one and refresh again.
		c.logger.Warn("Failed to persist refreshed credential", "error", err.Error())
	}

	c.metrics.ObserveRefresh(metrics.RefreshSucceeded)
	c.logger.Debug("Access token refreshed")
	return renewed, nil
}

// expire clears the store, notifies listeners and returns the error every waiter receives.
func (c *Coordinator) expire(reason error) error {
	c.mu.Lock()
	err := c.store.Clear()
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("Failed to clear credentials after refresh failure", "error", err.Error())
	}

	expired := &apierror.AuthExpiredError{Reason: reason}

	c.listenersMu.RLock()
	listeners := append([]func(error){}, c.listeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		go fn(expired)
	}

	return expired
}
