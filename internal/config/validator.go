package config

import (
	"fmt"
	"net/url"
)

const maxConnectionsPerPhase = 1000

// Validate checks the configuration for structural problems before a run
// starts.
func (c *Config) Validate() error {
	if err := validateTarget(&c.Target); err != nil {
		return err
	}

	if len(c.Phases) == 0 {
		return fmt.Errorf("at least one phase must be specified")
	}
	for i, p := range c.Phases {
		if err := validatePhase(&p); err != nil {
			return fmt.Errorf("invalid phase %d: %w", i+1, err)
		}
	}

	return nil
}

func validateTarget(t *Target) error {
	if t.URL == "" {
		return fmt.Errorf("target URL cannot be empty")
	}

	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("invalid target URL '%s': %w", t.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("target URL scheme must be ws or wss, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target URL '%s' has no host", t.URL)
	}

	if t.HandshakeTimeout != "" {
		if _, err := ParseDurationString(t.HandshakeTimeout); err != nil {
			return fmt.Errorf("invalid handshake timeout '%s': %w", t.HandshakeTimeout, err)
		}
	}

	if t.MaxConnections < 0 {
		return fmt.Errorf("max connections cannot be negative")
	}

	return nil
}

func validatePhase(p *Phase) error {
	if p.Connections < 1 {
		return fmt.Errorf("connections must be at least 1")
	}
	if p.Connections > maxConnectionsPerPhase {
		return fmt.Errorf("connections cannot exceed %d", maxConnectionsPerPhase)
	}

	d, err := ParseDurationString(p.Duration)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", p.Duration, err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	return nil
}
