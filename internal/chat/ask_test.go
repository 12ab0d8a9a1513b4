package chat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/internal/credential"
	"agentdesk/internal/stream"
)

func TestAskRequest_Payload(t *testing.T) {
	var form map[string][]string
	var fileName, fileBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = r.MultipartForm.Value
		f, hdr, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		fileName, fileBody = hdr.Filename, string(data)
		_, _ = io.WriteString(w, `{"event":"text","data":"ok"}`+"\n\n")
	}))
	defer srv.Close()

	streams, err := stream.New(srv.URL, credential.NewMemoryStore())
	require.NoError(t, err)

	reply, err := NewClient(streams, "").Ask(context.Background(), AskRequest{
		Question:   "forecast the next 12 months",
		SessionID:  "s-42",
		TimeSeries: true,
		File:       &Attachment{Name: "sales.csv", ContentType: "text/csv", Content: strings.NewReader("date,OT\n")},
	})
	require.NoError(t, err)
	_, err = Collect(reply)
	require.NoError(t, err)

	assert.Equal(t, []string{"forecast the next 12 months"}, form["question"])
	assert.Equal(t, []string{"s-42"}, form["session_id"])
	assert.Equal(t, []string{"true"}, form["isTimeSeries"])
	assert.Equal(t, []string{"false"}, form["isDocAnalysis"])
	assert.Equal(t, "sales.csv", fileName)
	assert.Equal(t, "date,OT\n", fileBody)
}

func TestCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultStreamPath, r.URL.Path)
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			`{"event": "doc", "data": "https://oss/forecast.csv"}`,
			`{"event": "img", "data": "https://oss/forecast.png"}`,
			`{"event": "text", "data": "Sales will grow "}`,
			`{"event": "text", "data": "by 4%."}`,
		} {
			_, _ = io.WriteString(w, frame+"\n\n")
			flusher.Flush()
		}
	}))
	defer srv.Close()

	streams, err := stream.New(srv.URL, credential.NewMemoryStore())
	require.NoError(t, err)

	reply, err := NewClient(streams, "").Ask(context.Background(), AskRequest{Question: "q", SessionID: "s"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.RequestID())

	answer, err := Collect(reply)
	require.NoError(t, err)
	assert.Equal(t, "Sales will grow by 4%.", answer.Text)
	assert.Equal(t, []string{"https://oss/forecast.csv"}, answer.Documents)
	assert.Equal(t, []string{"https://oss/forecast.png"}, answer.Images)
}

func TestCollect_ErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"event":"text","data":"partial"}`+"\n\n"+`{"event":"error","data":"error"}`+"\n\n")
	}))
	defer srv.Close()

	streams, err := stream.New(srv.URL, credential.NewMemoryStore())
	require.NoError(t, err)

	reply, err := NewClient(streams, "").Ask(context.Background(), AskRequest{Question: "q"})
	require.NoError(t, err)

	answer, err := Collect(reply)
	var serverErr *ServerEventError
	assert.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "partial", answer.Text)
}
