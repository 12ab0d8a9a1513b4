package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	orig := version
	version = v
	t.Cleanup(func() { version = orig })
}

func TestVersionCommand(t *testing.T) {
	withVersion(t, "1.2.3-test")

	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "agentdesk version 1.2.3-test\n", buf.String())
}

func TestVersionCommand_SkipsConfiguration(t *testing.T) {
	withVersion(t, "1.0.0")

	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--base-url", "not a url", "--show-metrics", "version"})

	require.NoError(t, root.Execute(), "version must not load or validate the configuration")
	assert.Equal(t, "agentdesk version 1.0.0\n", buf.String())
}

func TestVersionInUserAgent(t *testing.T) {
	withVersion(t, "2.0.0")

	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, `{"id":1,"name":"ada"}`)
	}))
	defer srv.Close()

	res := run(t, srv.URL, signedIn(), "", "whoami", "-o", "plain")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "agentdesk/2.0.0", userAgent)
}
