package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/internal/api"
	"agentdesk/internal/apierror"
	"agentdesk/internal/client"
	"agentdesk/internal/credential"
)

// fakeAuth is an in-memory Authenticator.
type fakeAuth struct {
	meCalls       atomic.Int32
	logoutCalls   atomic.Int32
	registerCalls atomic.Int32

	meGate    chan struct{}
	meErr     error
	loginErr  error
	logoutErr error
	profile   api.Profile
}

func (a *fakeAuth) Login(ctx context.Context, username, password string) (credential.Credential, error) {
	if a.loginErr != nil {
		return credential.Credential{}, a.loginErr
	}
	return credential.Credential{AccessToken: "A-" + username, RefreshToken: "R-" + username, TokenType: "bearer"}, nil
}

func (a *fakeAuth) Register(ctx context.Context, user api.UserCreate) (api.Profile, error) {
	a.registerCalls.Add(1)
	return api.Profile{ID: 1, Name: user.Name}, nil
}

func (a *fakeAuth) Me(ctx context.Context) (api.Profile, error) {
	a.meCalls.Add(1)
	if a.meGate != nil {
		select {
		case <-a.meGate:
		case <-ctx.Done():
			return api.Profile{}, ctx.Err()
		}
	}
	if a.meErr != nil {
		return api.Profile{}, a.meErr
	}
	return a.profile, nil
}

func (a *fakeAuth) Logout(ctx context.Context) error {
	a.logoutCalls.Add(1)
	return a.logoutErr
}

var alice = api.Profile{
	ID:             7,
	Name:           "alice",
	CoreLLMName:    "deepseek",
	CoreLLMKey:     "sk-live-123",
	Password:       "plaintext",
	HashedPassword: "$2b$12$abc",
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "checking", StateChecking.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestInit_RestoresSession(t *testing.T) {
	auth := &fakeAuth{profile: alice}
	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1", RefreshToken: "R1"})
	f := New(auth, store)

	assert.False(t, f.IsInitialized())
	assert.Equal(t, StateUninitialized, f.State())

	require.NoError(t, f.Init(context.Background()))

	assert.True(t, f.IsInitialized())
	assert.True(t, f.IsAuthenticated())
	assert.Equal(t, StateAuthenticated, f.State())

	user, ok := f.User()
	require.True(t, ok)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, "sk-live-123", user.CoreLLMKey.Value())
}

func TestInit_TwiceFetchesOnce(t *testing.T) {
	auth := &fakeAuth{profile: alice}
	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1"})
	f := New(auth, store)

	require.NoError(t, f.Init(context.Background()))
	require.NoError(t, f.Init(context.Background()))

	assert.Equal(t, int32(1), auth.meCalls.Load())
	assert.Equal(t, StateAuthenticated, f.State())
}

func TestInit_ConcurrentCallersShareOneCheck(t *testing.T) {
	auth := &fakeAuth{profile: alice, meGate: make(chan struct{})}
	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1"})
	f := New(auth, store)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.Init(context.Background()))
		}()
	}

	assert.Eventually(t, func() bool { return f.State() == StateChecking }, time.Second, 5*time.Millisecond)
	close(auth.meGate)
	wg.Wait()

	assert.Equal(t, int32(1), auth.meCalls.Load())
	assert.True(t, f.IsAuthenticated())
}

func TestInit_WithoutCredentialIsAnonymous(t *testing.T) {
	auth := &fakeAuth{profile: alice}
	f := New(auth, credential.NewMemoryStore())

	require.NoError(t, f.Init(context.Background()))

	assert.Equal(t, int32(0), auth.meCalls.Load(), "no profile fetch without a credential")
	assert.Equal(t, StateAnonymous, f.State())
	assert.True(t, f.IsInitialized())
	assert.False(t, f.IsAuthenticated())
}

func TestInit_RejectedCredentialIsCleared(t *testing.T) {
	auth := &fakeAuth{meErr: &apierror.RequestError{Status: http.StatusForbidden}}
	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1", RefreshToken: "R1"})
	f := New(auth, store)

	require.NoError(t, f.Init(context.Background()))

	assert.Equal(t, StateAnonymous, f.State())
	assert.True(t, f.IsInitialized())
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestInit_CancelledLeavesUninitialized(t *testing.T) {
	auth := &fakeAuth{profile: alice, meGate: make(chan struct{})}
	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1"})
	f := New(auth, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Init(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateUninitialized, f.State())
	assert.False(t, f.IsInitialized())

	_, ok := store.Get()
	assert.True(t, ok, "a cancelled check keeps the credential")

	close(auth.meGate)
	require.NoError(t, f.Init(context.Background()))
	assert.True(t, f.IsAuthenticated())
}

func TestLogin(t *testing.T) {
	auth := &fakeAuth{profile: alice}
	store := credential.NewMemoryStore()
	f := New(auth, store)

	require.NoError(t, f.Login(context.Background(), "alice", "pw"))

	assert.True(t, f.IsAuthenticated())
	assert.True(t, f.IsInitialized())
	cred, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "A-alice", cred.AccessToken)
	assert.Equal(t, "R-alice", cred.RefreshToken)
}

func TestLogin_FailureClearsCredentials(t *testing.T) {
	loginErr := &apierror.RequestError{Status: http.StatusUnauthorized, Message: "Incorrect username or password"}

	tests := []struct {
		name string
		auth *fakeAuth
	}{
		{name: "login rejected", auth: &fakeAuth{loginErr: loginErr}},
		{name: "profile fetch fails", auth: &fakeAuth{meErr: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "old"})
			f := New(tt.auth, store)

			err := f.Login(context.Background(), "alice", "pw")
			require.Error(t, err)

			assert.Equal(t, StateAnonymous, f.State())
			assert.False(t, f.IsAuthenticated())
			_, ok := store.Get()
			assert.False(t, ok)
		})
	}
}

func TestLogout_AlwaysClearsLocalState(t *testing.T) {
	auth := &fakeAuth{profile: alice, logoutErr: errors.New("server unreachable")}
	store := credential.NewMemoryStore()
	f := New(auth, store)
	require.NoError(t, f.Login(context.Background(), "alice", "pw"))

	require.NoError(t, f.Logout(context.Background()))

	assert.Equal(t, int32(1), auth.logoutCalls.Load())
	assert.Equal(t, StateAnonymous, f.State())
	_, ok := f.User()
	assert.False(t, ok)
	_, ok = store.Get()
	assert.False(t, ok)
}

func TestLogout_WithoutCredentialSkipsRemoteCall(t *testing.T) {
	auth := &fakeAuth{}
	f := New(auth, credential.NewMemoryStore())

	require.NoError(t, f.Logout(context.Background()))
	assert.Equal(t, int32(0), auth.logoutCalls.Load())
	assert.Equal(t, StateAnonymous, f.State())
}

func TestRegister_LogsIn(t *testing.T) {
	auth := &fakeAuth{profile: api.Profile{ID: 2, Name: "bob"}}
	store := credential.NewMemoryStore()
	f := New(auth, store)

	require.NoError(t, f.Register(context.Background(), api.UserCreate{Name: "bob", Password: "pw"}))

	assert.Equal(t, int32(1), auth.registerCalls.Load())
	assert.True(t, f.IsAuthenticated())
	cred, _ := store.Get()
	assert.Equal(t, "A-bob", cred.AccessToken)
}

func TestInvalidate(t *testing.T) {
	auth := &fakeAuth{profile: alice}
	f := New(auth, credential.NewMemoryStore())
	require.NoError(t, f.Login(context.Background(), "alice", "pw"))

	f.HandleAuthExpired(&apierror.AuthExpiredError{})

	assert.Equal(t, StateAnonymous, f.State())
	assert.False(t, f.IsAuthenticated())
	assert.True(t, f.IsInitialized())
}

func TestUser_IsSanitized(t *testing.T) {
	auth := &fakeAuth{profile: alice}
	f := New(auth, credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1"}))
	require.NoError(t, f.Init(context.Background()))

	user, ok := f.User()
	require.True(t, ok)

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "plaintext")
	assert.NotContains(t, string(data), "$2b$12$abc")
	assert.NotContains(t, string(data), "sk-live-123")
	assert.Contains(t, string(data), `"core_llm_key":"[REDACTED]"`)

	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", user, user, user), "sk-live-123")
}

func TestGuard_Require(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		auth := &fakeAuth{profile: alice}
		f := New(auth, credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1"}))

		user, err := NewGuard(f).Require(context.Background(), "list agents")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Name)
		assert.Equal(t, int32(1), auth.meCalls.Load())
	})

	t.Run("anonymous", func(t *testing.T) {
		f := New(&fakeAuth{}, credential.NewMemoryStore())

		_, err := NewGuard(f).Require(context.Background(), "list agents")
		var required *apierror.AuthRequiredError
		require.ErrorAs(t, err, &required)
		assert.Equal(t, "list agents", required.Operation)
	})
}

func TestFacade_InvalidatedByRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			_, _ = w.Write([]byte(`{"access_token":"A1","refresh_token":"R1","token_type":"bearer"}`))
		case "/auth/users/me":
			if r.Header.Get("Authorization") != "Bearer A1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":7,"name":"alice"}`))
		case "/auth/refresh-token":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	store := credential.NewMemoryStore()
	c, err := client.New(srv.URL, store)
	require.NoError(t, err)

	f := New(api.NewAuth(c, api.Endpoints{}), store)
	c.OnAuthExpired(f.HandleAuthExpired)

	require.NoError(t, f.Login(context.Background(), "alice", "pw"))
	require.True(t, f.IsAuthenticated())

	// Any protected call now 401s, the refresh is rejected and the session drops.
	_, err = c.Get(context.Background(), "/agent/list", nil)
	var expired *apierror.AuthExpiredError
	require.ErrorAs(t, err, &expired)

	assert.Eventually(t, func() bool { return !f.IsAuthenticated() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, StateAnonymous, f.State())
	_, ok := store.Get()
	assert.False(t, ok)
}
