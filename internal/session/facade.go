package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"agentdesk/internal/api"
	"agentdesk/internal/credential"
)

// State is the session's authentication state.
type State int

const (
	// StateUninitialized means no authentication check has run yet.
	StateUninitialized State = iota
	// StateChecking means the first authentication check is in flight.
	StateChecking
	// StateAuthenticated means a profile was fetched with the stored credential.
	StateAuthenticated
	// StateAnonymous means there is no usable credential.
	StateAnonymous
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Authenticator performs the authentication calls; *api.Auth implements it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (credential.Credential, error)
	Register(ctx context.Context, user api.UserCreate) (api.Profile, error)
	Me(ctx context.Context) (api.Profile, error)
	Logout(ctx context.Context) error
}

// Facade tracks who is signed in. It owns the transitions of the credential
// store triggered by login, logout and failed authentication checks.
type Facade struct {
	auth   Authenticator
	store  credential.Store
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	user        *User
	initialized bool
	// checking is closed when the in-flight check completes.
	checking chan struct{}
	// generation increments on every state change made outside Init, so a
	// check that finishes late does not overwrite a newer login or logout.
	generation uint64
}

// Option configures the Facade.
type Option func(*Facade)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// New creates a session facade.
func New(auth Authenticator, store credential.Store, opts ...Option) *Facade {
	f := &Facade{
		auth:   auth,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Init runs the authentication check once. Later calls return immediately;
// calls made while the check is in flight wait for it.
//
// A check that fails for any reason other than ctx ending clears the stored
// credential and leaves the session anonymous. If ctx ends first, the session
// stays uninitialized and ctx.Err() is returned.
func (f *Facade) Init(ctx context.Context) error {
	for {
		f.mu.Lock()
		switch f.state {
		case StateAuthenticated, StateAnonymous:
			f.mu.Unlock()
			return nil
		case StateChecking:
			ch := f.checking
			f.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		f.state = StateChecking
		f.checking = make(chan struct{})
		generation := f.generation
		f.mu.Unlock()

		return f.check(ctx, generation)
	}
}

func (f *Facade) check(ctx context.Context, generation uint64) error {
	var (
		user *User
		err  error
	)
	if _, ok := f.store.Get(); ok {
		var profile api.Profile
		profile, err = f.auth.Me(ctx)
		if err == nil {
			u := Sanitize(profile)
			user = &u
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() {
		close(f.checking)
		f.checking = nil
	}()

	if generation != f.generation {
		// Login or logout won the race; its state stands.
		if f.state == StateChecking {
			f.state = StateAnonymous
		}
		f.initialized = true
		return nil
	}

	if err != nil && ctx.Err() != nil {
		f.state = StateUninitialized
		return ctx.Err()
	}

	if user != nil {
		f.state = StateAuthenticated
		f.user = user
		f.logger.Debug("Session restored", "user_id", user.ID)
	} else {
		if err != nil {
			f.logger.Info("Stored credential rejected, continuing anonymously", "error", err.Error())
		}
		f.clearStoreLocked()
		f.state = StateAnonymous
		f.user = nil
	}
	f.initialized = true
	return nil
}

// Login authenticates with username and password, stores the returned
// tokens and fetches the profile. On any failure the credentials are
// cleared, the session is anonymous and the error is returned.
func (f *Facade) Login(ctx context.Context, username, password string) error {
	cred, err := f.auth.Login(ctx, username, password)
	if err != nil {
		f.reset()
		return err
	}
	if err := f.store.Set(cred); err != nil {
		f.reset()
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	profile, err := f.auth.Me(ctx)
	if err != nil {
		f.reset()
		return err
	}

	user := Sanitize(profile)
	f.mu.Lock()
	f.generation++
	f.user = &user
	f.state = StateAuthenticated
	f.initialized = true
	f.mu.Unlock()

	f.logger.Info("Logged in", "user_id", user.ID)
	return nil
}

// Register creates an account and logs in with it.
func (f *Facade) Register(ctx context.Context, user api.UserCreate) error {
	if _, err := f.auth.Register(ctx, user); err != nil {
		return err
	}
	return f.Login(ctx, user.Name, user.Password)
}

// Logout ends the session. The remote call is best effort; the local
// credentials are always cleared and the session becomes anonymous.
func (f *Facade) Logout(ctx context.Context) error {
	if _, ok := f.store.Get(); ok {
		if err := f.auth.Logout(ctx); err != nil {
			f.logger.Debug("Remote logout failed, clearing local session anyway", "error", err.Error())
		}
	}

	err := f.store.Clear()

	f.mu.Lock()
	f.generation++
	f.user = nil
	f.state = StateAnonymous
	f.initialized = true
	f.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Invalidate drops the signed-in user after the credentials were found to
// be unrecoverable. The store is already empty at this point.
func (f *Facade) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	f.user = nil
	if f.state == StateAuthenticated {
		f.state = StateAnonymous
		f.logger.Info("Session expired")
	}
}

// HandleAuthExpired adapts Invalidate to client.Client.OnAuthExpired.
func (f *Facade) HandleAuthExpired(error) {
	f.Invalidate()
}

// State returns the current state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsAuthenticated reports whether a user is signed in.
func (f *Facade) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateAuthenticated && f.user != nil
}

// IsInitialized reports whether the first authentication check completed.
func (f *Facade) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// User returns the signed-in user.
func (f *Facade) User() (User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return User{}, false
	}
	return *f.user, true
}

// reset clears credentials after a failed login.
func (f *Facade) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.clearStoreLocked()
	f.user = nil
	f.state = StateAnonymous
	f.initialized = true
}

func (f *Facade) clearStoreLocked() {
	if err := f.store.Clear(); err != nil {
		f.logger.Warn("Failed to clear credentials", "error", err.Error())
	}
}
