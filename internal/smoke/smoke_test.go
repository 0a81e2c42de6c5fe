package smoke

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker(t *testing.T) *Checker {
	t.Helper()
	c, err := NewChecker(2 * time.Second)
	require.NoError(t, err)
	return c
}

func TestCheckMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantPassed bool
	}{
		{
			name:   "valid payload",
			status: http.StatusOK,
			body: `{"timestamp": 1700000000000, "seq": 7, "update_type": "full",
				"providers": {"a": {}}, "system": {"cpu": {}}}`,
			wantPassed: true,
		},
		{
			name:       "missing required fields",
			status:     http.StatusOK,
			body:       `{"timestamp": 1700000000000}`,
			wantPassed: false,
		},
		{
			name:       "wrong field type",
			status:     http.StatusOK,
			body:       `{"timestamp": "now", "seq": 1, "update_type": "full", "providers": {}, "system": {}}`,
			wantPassed: false,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{}`,
			wantPassed: false,
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<html>`,
			wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result := newChecker(t).CheckMetricsEndpoint(context.Background(), server.URL)
			assert.Equal(t, tt.wantPassed, result.Passed, "detail: %s", result.Detail)
		})
	}
}

func TestCheckMetricsEndpoint_Unreachable(t *testing.T) {
	result := newChecker(t).CheckMetricsEndpoint(context.Background(), "http://127.0.0.1:1/metrics")
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Detail)
}

func TestCheckWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"snapshot","timestamp":1700000000000}`))

		// Echo a pong for the ping.
		if _, _, err := conn.ReadMessage(); err == nil {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	result := newChecker(t).CheckWebSocket(context.Background(), url)

	assert.True(t, result.Passed, "detail: %s", result.Detail)
	assert.Contains(t, result.Detail, "pong")
}

func TestCheckWebSocket_NoReplyStillPasses(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"snapshot"}`))

		// Keep the connection open without replying to the ping.
		conn.ReadMessage()
		time.Sleep(3 * time.Second)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	result := newChecker(t).CheckWebSocket(context.Background(), url)

	assert.True(t, result.Passed, "detail: %s", result.Detail)
}

func TestCheckWebSocket_DialFailure(t *testing.T) {
	result := newChecker(t).CheckWebSocket(context.Background(), "ws://127.0.0.1:1/ws")
	assert.False(t, result.Passed)
	assert.Contains(t, result.Detail, "dial failed")
}
