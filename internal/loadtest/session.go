package loadtest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// SessionState represents the lifecycle state of a connection session.
type SessionState int32

const (
	// StateConnecting indicates the session is dialing the target.
	StateConnecting SessionState = iota
	// StateOpen indicates the connection is established and the initial
	// control message was sent.
	StateOpen
	// StateReceiving indicates the session is in its read loop.
	StateReceiving
	// StateClosed indicates the session ended cleanly (including being cut
	// off by the phase deadline).
	StateClosed
	// StateFailed indicates the session ended on a connection, send, or
	// receive error.
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// requestUpdate is the control message sent immediately after a connection
// opens, asking the server to start pushing updates.
var requestUpdate = []byte(`{"type":"request_update"}`)

// Session owns one WebSocket connection's lifecycle within a phase: dial,
// request updates, receive until the phase deadline or an error, and feed
// the phase aggregate.
//
// A session absorbs its own failures into the aggregate's counters; Run
// never returns an error. Failures are observations, not faults to recover
// from, so there are no retries.
type Session struct {
	// ID is the session's ordinal index within the phase.
	ID int

	url    string
	dialer *websocket.Dialer
	agg    *PhaseAggregate

	state atomic.Int32

	// Local counters, folded into the per-session stat entry on exit.
	messages int64
	errors   int64
}

// NewSession creates a session bound to a phase aggregate.
func NewSession(id int, url string, dialer *websocket.Dialer, agg *PhaseAggregate) *Session {
	return &Session{ID: id, url: url, dialer: dialer, agg: agg}
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
}

// Run drives the session until the context deadline fires or the connection
// errors. It must be called at most once.
func (s *Session) Run(ctx context.Context) {
	s.setState(StateConnecting)

	// A failed dial shows up in the connection success rate, not in the
	// message error rate.
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.setState(StateFailed)
		return
	}
	defer conn.Close()

	// Reaching Open requires the initial control message to land.
	if err := conn.WriteMessage(websocket.TextMessage, requestUpdate); err != nil {
		s.agg.RecordError()
		s.setState(StateFailed)
		return
	}
	s.setState(StateOpen)
	s.agg.RecordOpen()
	s.agg.RegisterSession(s.ID)
	defer func() {
		s.agg.FinishSession(s.ID, s.messages, s.errors)
	}()

	// Closing the connection is the only way to unblock a pending read, so
	// a watcher forces the close when the phase deadline fires.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	s.setState(StateReceiving)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				// Cut off by the phase deadline; not a failure.
				s.setState(StateClosed)
			} else {
				s.errors++
				s.agg.RecordError()
				s.setState(StateFailed)
			}
			return
		}
		s.observe(payload, time.Now())
	}
}

// observe classifies one received message and updates the phase counters.
// Malformed payloads count as errors but never end the session.
func (s *Session) observe(payload []byte, now time.Time) {
	sample, err := Sample(payload, now)
	switch {
	case err == nil:
		s.messages++
		s.agg.RecordMessage()
		s.agg.RecordSample(sample)
	case errors.Is(err, ErrNoTimestamp):
		s.messages++
		s.agg.RecordMessage()
	default:
		s.errors++
		s.agg.RecordError()
	}
}
