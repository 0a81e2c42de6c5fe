// Package config loads and validates load-test run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wsbench/wsbench/internal/loadtest"
)

// Config is the top-level run configuration.
type Config struct {
	Target Target  `json:"target" yaml:"target"`
	Phases []Phase `json:"phases" yaml:"phases"`
}

// Target describes the WebSocket endpoint under test.
type Target struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:8080/ws".
	URL string `json:"url" yaml:"url"`

	// HandshakeTimeout bounds the WebSocket handshake, e.g. "10s".
	HandshakeTimeout string `json:"handshakeTimeout,omitempty" yaml:"handshakeTimeout,omitempty"`

	// MaxConnections caps the per-phase connection count.
	MaxConnections int `json:"maxConnections,omitempty" yaml:"maxConnections,omitempty"`
}

// Phase describes one load phase.
type Phase struct {
	Connections int    `json:"connections" yaml:"connections"`
	Duration    string `json:"duration" yaml:"duration"`
}

// Default returns the standard escalating plan: 50, 100, then 150
// connections against a local server.
func Default() *Config {
	return &Config{
		Target: Target{URL: "ws://localhost:8080/ws"},
		Phases: []Phase{
			{Connections: 50, Duration: "10s"},
			{Connections: 100, Duration: "15s"},
			{Connections: 150, Duration: "10s"},
		},
	}
}

// Load reads a configuration file. The format is determined by extension:
// .json is JSON, anything else is parsed as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses configuration data, using the extension of path to pick the
// format.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Options converts the target section into orchestrator options.
func (c *Config) Options() (loadtest.Options, error) {
	handshake, err := ParseDurationString(c.Target.HandshakeTimeout)
	if err != nil {
		return loadtest.Options{}, fmt.Errorf("invalid handshake timeout '%s': %w", c.Target.HandshakeTimeout, err)
	}

	return loadtest.Options{
		URL:              c.Target.URL,
		HandshakeTimeout: handshake,
		MaxConnections:   c.Target.MaxConnections,
	}, nil
}

// PhasePlan converts the phase list into runner phase configs.
func (c *Config) PhasePlan() ([]loadtest.PhaseConfig, error) {
	plan := make([]loadtest.PhaseConfig, 0, len(c.Phases))
	for i, p := range c.Phases {
		d, err := ParseDurationString(p.Duration)
		if err != nil {
			return nil, fmt.Errorf("phase %d: invalid duration '%s': %w", i+1, p.Duration, err)
		}
		plan = append(plan, loadtest.PhaseConfig{Connections: p.Connections, Duration: d})
	}
	return plan, nil
}

// ParseDurationString parses duration strings like "30s", "2m", "1h30m",
// and spelled-out forms like "2 minutes" or "30 seconds".
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	// Spelled-out units: "1 minute", "30 seconds".
	normalized := strings.ReplaceAll(strings.ToLower(s), " ", "")
	replacements := map[string]string{
		"seconds": "s",
		"second":  "s",
		"minutes": "m",
		"minute":  "m",
		"hours":   "h",
		"hour":    "h",
	}
	for word, abbrev := range replacements {
		normalized = strings.ReplaceAll(normalized, word, abbrev)
	}

	return time.ParseDuration(normalized)
}
