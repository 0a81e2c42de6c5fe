// Package server manages the lifecycle of a server binary under test. It is
// a thin wrapper around os/exec: start, wait for readiness, and stop with a
// kill escalation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Process is a managed server process.
type Process struct {
	// Command is the server binary to run.
	Command string

	// Args are passed to the binary.
	Args []string

	// Dir is the working directory (defaults to the current directory).
	Dir string

	// ReadyURL, when set, is polled with GET until it answers 200.
	ReadyURL string

	// ReadyTimeout bounds the readiness wait (default 15s).
	ReadyTimeout time.Duration

	// StopGrace is how long to wait after SIGTERM before SIGKILL
	// (default 5s).
	StopGrace time.Duration

	cmd *exec.Cmd
}

const (
	defaultReadyTimeout = 15 * time.Second
	defaultStopGrace    = 5 * time.Second
	readyPollInterval   = 200 * time.Millisecond
)

// Start launches the process and, if a ready URL is configured, blocks until
// the server answers or the readiness timeout expires. On a readiness
// failure the process is stopped before returning.
func (p *Process) Start(ctx context.Context) error {
	if p.cmd != nil {
		return fmt.Errorf("server already started")
	}
	if p.Command == "" {
		return fmt.Errorf("no server command configured")
	}

	cmd := exec.Command(p.Command, p.Args...)
	cmd.Dir = p.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	p.cmd = cmd

	if p.ReadyURL == "" {
		return nil
	}

	if err := p.waitReady(ctx); err != nil {
		p.Stop()
		return err
	}
	return nil
}

// waitReady polls the ready URL until it answers 200.
func (p *Process) waitReady(ctx context.Context) error {
	timeout := p.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: readyPollInterval * 2}
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(readyCtx, http.MethodGet, p.ReadyURL, nil)
		if err != nil {
			return fmt.Errorf("invalid ready URL: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-readyCtx.Done():
			return fmt.Errorf("server not ready at %s within %v", p.ReadyURL, timeout)
		case <-ticker.C:
		}
	}
}

// Stop terminates the process: SIGTERM first, SIGKILL if it does not exit
// within the grace period. Stop is a no-op when nothing is running.
func (p *Process) Stop() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	defer func() { p.cmd = nil }()

	grace := p.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill server: %w", err)
		}
		<-done
		return nil
	}
}
