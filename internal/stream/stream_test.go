package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"agentdesk/internal/apierror"
	"agentdesk/internal/client"
	"agentdesk/internal/credential"
	"agentdesk/internal/metrics"
)

// newStreamingServer returns a server that writes each part as its own
// flushed chunk.
func newStreamingServer(t *testing.T, parts ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, p := range parts {
			_, _ = io.WriteString(w, p)
			flusher.Flush()
		}
	}))
}

func newTestClient(t *testing.T, serverURL string, store credential.Store, opts ...Option) (*Client, *http.Transport) {
	t.Helper()
	transport := &http.Transport{}
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: transport})}, opts...)
	c, err := New(serverURL, store, opts...)
	require.NoError(t, err)
	t.Cleanup(transport.CloseIdleConnections)
	return c, transport
}

func TestOpen_YieldsChunksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	parts := []string{
		`{"event": "text", "data": "first"}` + "\n\n",
		`{"event": "doc", "data": "https://oss/forecast.csv"}` + "\n\n",
		`{"event": "img", "data": "https://oss/forecast.png"}` + "\n\n",
	}
	srv := newStreamingServer(t, parts...)
	defer srv.Close()

	c, transport := newTestClient(t, srv.URL, credential.NewMemoryStore())
	defer transport.CloseIdleConnections()

	s, err := c.Open(context.Background(), "/chat/ask_a2a_streaming", client.NewMultipart().Field("question", "hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, s.RequestID())

	var got bytes.Buffer
	for chunk, err := range s.Chunks() {
		require.NoError(t, err)
		got.Write(chunk)
	}

	assert.Equal(t, strings.Join(parts, ""), got.String())
	assert.Equal(t, got.Len(), s.Delivered())
}

func TestOpen_NextReturnsEOFThenAlreadyConsumed(t *testing.T) {
	srv := newStreamingServer(t, "hello ", "world")
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)
	defer s.Close()

	var got []byte
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk...)
	}
	assert.Equal(t, "hello world", string(got))

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrStreamAlreadyConsumed)

	for _, err := range s.Chunks() {
		assert.ErrorIs(t, err, ErrStreamAlreadyConsumed)
	}
}

func TestChunks_SecondRangeFails(t *testing.T) {
	srv := newStreamingServer(t, "a", "b")
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)

	for _, err := range s.Chunks() {
		require.NoError(t, err)
	}

	var errs []error
	for chunk, err := range s.Chunks() {
		assert.Nil(t, chunk)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStreamAlreadyConsumed)
}

func TestClose_ReleasesTransportAfterFirstChunk(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	disconnected := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, "first chunk")
		flusher.Flush()

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				close(disconnected)
				return
			case <-ticker.C:
				// Keep writing so the client would see more if it were still reading.
				_, _ = io.WriteString(w, "more")
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	c, transport := newTestClient(t, srv.URL, credential.NewMemoryStore())
	defer transport.CloseIdleConnections()

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)

	chunk, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "first chunk", string(chunk))

	require.NoError(t, s.Close())

	chunk, err = s.Next()
	assert.Nil(t, chunk)
	assert.ErrorIs(t, err, ErrStreamAlreadyConsumed)

	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the client disconnect")
	}
}

func TestChunks_BreakClosesStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	disconnected := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "only")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(disconnected)
	}))
	defer srv.Close()

	c, transport := newTestClient(t, srv.URL, credential.NewMemoryStore())
	defer transport.CloseIdleConnections()

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)

	for chunk, err := range s.Chunks() {
		require.NoError(t, err)
		assert.Equal(t, "only", string(chunk))
		break
	}

	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("breaking out of Chunks did not release the connection")
	}

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrStreamAlreadyConsumed)
}

func TestClose_InterruptsBlockedNext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStreamAlreadyConsumed)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not interrupt the pending read")
	}
}

func TestOpen_AttachesCredentialAndMultipart(t *testing.T) {
	var gotAuth, gotAccept, gotQuestion, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotQuestion = r.FormValue("question")
			if f, _, err := r.FormFile("files"); err == nil {
				data, _ := io.ReadAll(f)
				gotFile = string(data)
				_ = f.Close()
			}
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1", RefreshToken: "R1"})
	c, _ := newTestClient(t, srv.URL, store)

	payload := client.NewMultipart().
		Field("question", "forecast").
		File("files", "data.csv", "text/csv", strings.NewReader("date,OT\n"))

	s, err := c.Open(context.Background(), "/chat/ask_a2a_streaming", payload)
	require.NoError(t, err)
	for _, err := range s.Chunks() {
		require.NoError(t, err)
	}

	assert.Equal(t, "Bearer A1", gotAuth)
	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, "forecast", gotQuestion)
	assert.Equal(t, "date,OT\n", gotFile)
}

func TestOpen_UnauthorizedIsTerminal(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == client.DefaultRefreshPath {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}))
	defer srv.Close()

	store := credential.NewMemoryStoreWith(credential.Credential{AccessToken: "A1", RefreshToken: "R1"})
	c, _ := newTestClient(t, srv.URL, store)

	s, err := c.Open(context.Background(), "/chat/ask_a2a_streaming", nil)
	assert.Nil(t, s)

	var reqErr *apierror.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)
	assert.Equal(t, int32(0), refreshCalls.Load())

	_, ok := store.Get()
	assert.True(t, ok, "a stream 401 does not clear credentials")
}

func TestOpen_ServerErrorFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Agent not found for this user"}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	_, err := c.Open(context.Background(), "/chat/ask_a2a_streaming", nil)
	var reqErr *apierror.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Agent not found for this user", reqErr.Message)
}

func TestOpen_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	_, err := c.Open(context.Background(), "/stream", nil)
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestOpen_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := srv.URL
	srv.Close()

	c, _ := newTestClient(t, serverURL, credential.NewMemoryStore())

	_, err := c.Open(context.Background(), "/stream", nil)
	var netErr *apierror.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestNext_MidStreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more than is sent so the client sees a truncated body.
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "0123456789")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)

	var got []byte
	var streamErr error
	for chunk, err := range s.Chunks() {
		if err != nil {
			streamErr = err
			break
		}
		got = append(got, chunk...)
	}

	assert.Equal(t, "0123456789", string(got), "delivered data is kept")

	var transportErr *StreamTransportError
	require.ErrorAs(t, streamErr, &transportErr)
	assert.Equal(t, 10, transportErr.Delivered)
	assert.ErrorIs(t, streamErr, io.ErrUnexpectedEOF)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrStreamAlreadyConsumed)
}

func TestNext_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "start")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := c.Open(ctx, "/stream", nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next()
	require.NoError(t, err)

	cancel()

	_, err = s.Next()
	var transportErr *StreamTransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestStream_RecordsMetrics(t *testing.T) {
	srv := newStreamingServer(t, "abc", "de")
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c, _ := newTestClient(t, srv.URL, credential.NewMemoryStore(), WithMetrics(metrics.NewPrometheus(reg)))

	s, err := c.Open(context.Background(), "/stream", nil)
	require.NoError(t, err)
	for _, err := range s.Chunks() {
		require.NoError(t, err)
	}

	expected := `
# HELP agentdesk_stream_streams_total Streamed responses, by how they ended.
# TYPE agentdesk_stream_streams_total counter
agentdesk_stream_streams_total{outcome="completed"} 1
# HELP agentdesk_stream_received_bytes_total Bytes delivered to stream consumers.
# TYPE agentdesk_stream_received_bytes_total counter
agentdesk_stream_received_bytes_total 5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"agentdesk_stream_streams_total", "agentdesk_stream_received_bytes_total"))
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New("http://localhost:8000", nil)
	assert.Error(t, err)

	_, err = New("localhost:8000", credential.NewMemoryStore())
	assert.Error(t, err)
}
