package quiq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupesweep/internal/transport"
	"github.com/steveyegge/dupesweep/internal/types"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	tcfg := transport.DefaultConfig()
	tcfg.RequestsPerSecond = 0
	tcfg.MaxRetries = 0
	c, err := New(Config{Domain: srv.URL, Identity: "id", Secret: "sec"}, tcfg,
		transport.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestGetConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		assert.Equal(t, "id", user)
		assert.Equal(t, "sec", pass)
		assert.Equal(t, "/api/v1/messaging/conversation/conv-1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"conv-1","status":"Open","startTime":1709287200000,
			"messages":[{"timestamp":1709287300000,"fromCustomer":true},{"timestamp":1709287400000,"fromCustomer":false}]}`)
	}))
	defer srv.Close()

	conv, err := newTestClient(t, srv).GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.True(t, conv.IsOpen())
	assert.Equal(t, int64(1709287200000), conv.StartTime.UnixMilli())

	last, ok := conv.LastCustomerMessageTime()
	require.True(t, ok)
	assert.Equal(t, int64(1709287300000), last.UnixMilli())
}

func TestGetConversationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetConversation(context.Background(), "gone")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, transport.StatusCode(err))
}

func TestSendToQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/messaging/conversations/conv-1/send-to-queue", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "duplicates", body["targetQueue"])
		assert.Equal(t, false, body["awaitingCustomerResponse"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv).SendToQueue(context.Background(), "conv-1", "duplicates"))
}

func TestConversationStatusDecode(t *testing.T) {
	var conv types.Conversation
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Closed"}`), &conv))
	assert.False(t, conv.IsOpen())
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Domain: "d"}.Validate())
	assert.NoError(t, Config{Domain: "d", Identity: "i", Secret: "s"}.Validate())
}
