package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer is a test WebSocket server that waits for the initial
// request_update message and then pushes payloads at a fixed interval until
// the client goes away.
func streamServer(t *testing.T, interval time.Duration, payload func() []byte) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteMessage(websocket.TextMessage, payload()); err != nil {
				return
			}
		}
	}))

	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// timestampedPayload embeds a server timestamp a fixed offset in the past,
// so every latency sample is at least that offset.
func timestampedPayload(offset time.Duration) func() []byte {
	return func() []byte {
		ts := time.Now().Add(-offset).UnixMilli()
		return []byte(fmt.Sprintf(`{"timestamp":%d,"update_type":"full"}`, ts))
	}
}

func TestOrchestrator_Run(t *testing.T) {
	server := streamServer(t, 20*time.Millisecond, timestampedPayload(10*time.Millisecond))

	orch := NewOrchestrator(Options{URL: wsURL(server)})
	agg, err := orch.Run(context.Background(), 5, 500*time.Millisecond)
	require.NoError(t, err)

	assert.EqualValues(t, 5, agg.Attempts(), "attempts must equal requested connection count")
	assert.EqualValues(t, 5, agg.Opened())
	assert.LessOrEqual(t, agg.Opened(), agg.Attempts())
	assert.Positive(t, agg.Messages())
	assert.Zero(t, agg.Errors(), "forced close at phase end must not count as an error")
	assert.Len(t, agg.SessionStats(), 5)

	samples := agg.Samples()
	require.NotEmpty(t, samples)
	for _, s := range samples {
		assert.GreaterOrEqual(t, float64(s), 0.0)
	}
}

func TestOrchestrator_RunJoinsWithinGrace(t *testing.T) {
	server := streamServer(t, 20*time.Millisecond, timestampedPayload(0))

	orch := NewOrchestrator(Options{URL: wsURL(server)})

	start := time.Now()
	_, err := orch.Run(context.Background(), 10, 300*time.Millisecond)
	require.NoError(t, err)

	// All sessions must be joined shortly after the phase duration.
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestOrchestrator_UnreachableTarget(t *testing.T) {
	// A server that is already gone: every dial fails, but the phase still
	// completes and counts every attempt.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := wsURL(server)
	server.Close()

	orch := NewOrchestrator(Options{URL: url})
	agg, err := orch.Run(context.Background(), 8, 200*time.Millisecond)
	require.NoError(t, err)

	assert.EqualValues(t, 8, agg.Attempts())
	assert.Zero(t, agg.Opened())
	assert.Zero(t, agg.Messages())
	assert.Zero(t, agg.Errors(), "failed dials are tracked by the success rate, not the error counter")
}

func TestOrchestrator_MalformedMessages(t *testing.T) {
	count := 0
	server := streamServer(t, 20*time.Millisecond, func() []byte {
		count++
		if count%2 == 0 {
			return []byte(`{"timestamp":`)
		}
		return []byte(fmt.Sprintf(`{"timestamp":%d}`, time.Now().UnixMilli()))
	})

	orch := NewOrchestrator(Options{URL: wsURL(server)})
	agg, err := orch.Run(context.Background(), 1, 300*time.Millisecond)
	require.NoError(t, err)

	assert.EqualValues(t, 1, agg.Opened(), "malformed messages must not kill the session")
	assert.Positive(t, agg.Messages())
	assert.Positive(t, agg.Errors())
}

func TestOrchestrator_Unrunnable(t *testing.T) {
	orch := NewOrchestrator(Options{URL: "ws://localhost:0/ws"})

	tests := []struct {
		name     string
		n        int
		duration time.Duration
	}{
		{"zero connections", 0, time.Second},
		{"negative connections", -1, time.Second},
		{"over the cap", 5000, time.Second},
		{"zero duration", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := orch.Run(context.Background(), tt.n, tt.duration)
			require.ErrorIs(t, err, ErrPhaseUnrunnable)
			assert.Nil(t, agg)
		})
	}
}

func TestSession_States(t *testing.T) {
	server := streamServer(t, 20*time.Millisecond, timestampedPayload(0))

	agg := NewPhaseAggregate()
	dialer := &websocket.Dialer{HandshakeTimeout: time.Second}

	t.Run("clean close", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		session := NewSession(0, wsURL(server), dialer, agg)
		session.Run(ctx)

		assert.Equal(t, StateClosed, session.State())
	})

	t.Run("failed dial", func(t *testing.T) {
		session := NewSession(1, "ws://127.0.0.1:1/ws", dialer, agg)
		session.Run(context.Background())

		assert.Equal(t, StateFailed, session.State())
	})
}

func TestSessionState_String(t *testing.T) {
	states := map[SessionState]string{
		StateConnecting:   "connecting",
		StateOpen:         "open",
		StateReceiving:    "receiving",
		StateClosed:       "closed",
		StateFailed:       "failed",
		SessionState(404): "unknown",
	}
	for state, want := range states {
		assert.Equal(t, want, state.String())
	}
}
