// Package smoke provides single-shot health checks against the server under
// test: one HTTP metrics fetch validated against a schema, and one short
// WebSocket round trip. These carry no load or statistics; they only answer
// "is the server shaped right".
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metricsSchema describes the minimum shape of the comprehensive metrics
// payload. Extra fields are allowed.
const metricsSchema = `{
	"type": "object",
	"required": ["timestamp", "seq", "update_type", "providers", "system"],
	"properties": {
		"timestamp": {"type": "number"},
		"seq": {"type": "number"},
		"update_type": {"type": "string"},
		"providers": {"type": "object"},
		"system": {"type": "object"}
	}
}`

// CheckResult is the outcome of one smoke check.
type CheckResult struct {
	Name    string        `json:"name"`
	Passed  bool          `json:"passed"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Checker runs smoke checks against one server.
type Checker struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	schema     *jsonschema.Schema
}

// NewChecker creates a checker with the given per-check timeout.
func NewChecker(timeout time.Duration) (*Checker, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("metrics.json", strings.NewReader(metricsSchema)); err != nil {
		return nil, fmt.Errorf("failed to register metrics schema: %w", err)
	}
	schema, err := compiler.Compile("metrics.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile metrics schema: %w", err)
	}

	return &Checker{
		httpClient: &http.Client{Timeout: timeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: timeout},
		schema:     schema,
	}, nil
}

// CheckMetricsEndpoint fetches the comprehensive metrics endpoint and
// validates the payload shape.
func (c *Checker) CheckMetricsEndpoint(ctx context.Context, url string) CheckResult {
	result := CheckResult{Name: "metrics endpoint"}
	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Detail = fmt.Sprintf("invalid URL: %v", err)
		return result
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Detail = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Detail = fmt.Sprintf("status %d, want 200", resp.StatusCode)
		return result
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Detail = fmt.Sprintf("failed to read body: %v", err)
		return result
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		result.Detail = fmt.Sprintf("body is not JSON: %v", err)
		return result
	}

	if err := c.schema.Validate(payload); err != nil {
		result.Detail = fmt.Sprintf("payload shape invalid: %v", err)
		return result
	}

	result.Passed = true
	return result
}

// CheckWebSocket connects once, reads the initial frame, sends a ping
// message, and waits briefly for an optional reply. A missing reply is not
// a failure; a broken handshake or initial frame is.
func (c *Checker) CheckWebSocket(ctx context.Context, url string) CheckResult {
	result := CheckResult{Name: "websocket endpoint"}
	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		result.Detail = fmt.Sprintf("dial failed: %v", err)
		return result
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(c.httpClient.Timeout))
	_, initial, err := conn.ReadMessage()
	if err != nil {
		result.Detail = fmt.Sprintf("no initial frame: %v", err)
		return result
	}
	if !json.Valid(initial) {
		result.Detail = "initial frame is not JSON"
		return result
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		result.Detail = fmt.Sprintf("ping send failed: %v", err)
		return result
	}

	// A reply is optional; a short read timeout here is the expected case
	// for servers that only push on their own schedule.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, reply, err := conn.ReadMessage(); err == nil {
		result.Detail = fmt.Sprintf("reply: %s", truncate(string(reply), 80))
	}

	result.Passed = true
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
