package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Error(msg string, args ...any) {}

func Test_Pusher_FlushesBatchOnStop(t *testing.T) {

	received := make(chan pushRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req pushRequest
		_ = json.Unmarshal(body, &req)
		received <- req
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		Labels:       map[string]string{"app": "test"},
		BatchMaxWait: time.Minute,
	}, noopLogger{})
	require.NoError(t, err)

	require.NoError(t, pusher.Push(LogEntry{Level: "info", Message: "hello"}))
	pusher.Stop()

	select {
	case req := <-received:
		require.Len(t, req.Streams, 1)
		assert.Equal(t, "test", req.Streams[0].Stream["app"])
		require.Len(t, req.Streams[0].Values, 1)
		assert.Contains(t, req.Streams[0].Values[0][1], `"msg":"hello"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no push received")
	}
}

func Test_New_RequiresURL(t *testing.T) {
	_, err := New(context.Background(), Config{}, noopLogger{})
	assert.Error(t, err)
}
