package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrPhaseUnrunnable indicates a phase could not be started at all, as
// opposed to individual sessions failing. The runner absorbs it into a
// zero-success report.
var ErrPhaseUnrunnable = errors.New("phase cannot be run")

// Options configures the connection orchestrator.
type Options struct {
	// URL is the WebSocket endpoint to load, e.g. "ws://localhost:8080/ws".
	URL string

	// HandshakeTimeout bounds the WebSocket handshake (default 10s).
	HandshakeTimeout time.Duration

	// MaxConnections caps the per-phase connection count (default 1000).
	MaxConnections int
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultMaxConnections   = 1000
)

// Orchestrator fans out concurrent connection sessions for one phase at a
// time and joins them before returning, so no session ever leaks into the
// next phase.
type Orchestrator struct {
	opts   Options
	dialer *websocket.Dialer
}

// NewOrchestrator creates an orchestrator for the given target.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = defaultMaxConnections
	}

	return &Orchestrator{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
}

// Run executes one phase: exactly n sessions run concurrently against the
// target for the given duration, after which any still-open session is
// force-closed. Run returns only after every session has terminated.
//
// Individual session failures are absorbed into the aggregate; Run itself
// fails only when the phase cannot be run at all (wrapping
// ErrPhaseUnrunnable).
func (o *Orchestrator) Run(ctx context.Context, n int, duration time.Duration) (*PhaseAggregate, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: connection count %d", ErrPhaseUnrunnable, n)
	}
	if n > o.opts.MaxConnections {
		return nil, fmt.Errorf("%w: connection count %d exceeds cap %d", ErrPhaseUnrunnable, n, o.opts.MaxConnections)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration %v", ErrPhaseUnrunnable, duration)
	}
	if o.opts.URL == "" {
		return nil, fmt.Errorf("%w: no target URL", ErrPhaseUnrunnable)
	}

	agg := NewPhaseAggregate()
	agg.begin()

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		agg.RecordAttempt()
		session := NewSession(i, o.opts.URL, o.dialer, agg)

		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Run(runCtx)
		}()
	}

	// Sessions are guaranteed to exit: the deadline watcher closes each
	// connection, which unblocks any pending read.
	wg.Wait()
	agg.finish()

	return agg, nil
}
