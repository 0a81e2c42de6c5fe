package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParsePhasesFlag(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		phases, err := parsePhasesFlag("50:10s, 100:15s,150:10s")
		if err != nil {
			t.Fatalf("parsePhasesFlag() error: %v", err)
		}
		if len(phases) != 3 {
			t.Fatalf("got %d phases, want 3", len(phases))
		}
		if phases[0].Connections != 50 || phases[0].Duration != "10s" {
			t.Errorf("phases[0] = %+v", phases[0])
		}
		if phases[2].Connections != 150 {
			t.Errorf("phases[2].Connections = %d, want 150", phases[2].Connections)
		}
	})

	t.Run("invalid entries", func(t *testing.T) {
		for _, in := range []string{"", "50", "abc:10s", ",,"} {
			if _, err := parsePhasesFlag(in); err == nil {
				t.Errorf("parsePhasesFlag(%q) succeeded, want error", in)
			}
		}
	})
}

func TestResolveConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := resolveConfig("", "", "")
		if err != nil {
			t.Fatalf("resolveConfig() error: %v", err)
		}
		if len(cfg.Phases) != 3 {
			t.Errorf("default plan has %d phases, want 3", len(cfg.Phases))
		}
	})

	t.Run("flag overrides", func(t *testing.T) {
		cfg, err := resolveConfig("", "ws://example.com/ws", "10:5s")
		if err != nil {
			t.Fatalf("resolveConfig() error: %v", err)
		}
		if cfg.Target.URL != "ws://example.com/ws" {
			t.Errorf("Target.URL = %q", cfg.Target.URL)
		}
		if len(cfg.Phases) != 1 || cfg.Phases[0].Connections != 10 {
			t.Errorf("Phases = %+v", cfg.Phases)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plan.yaml")
		content := "target:\n  url: ws://configured:9999/ws\nphases:\n  - connections: 5\n    duration: 2s\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := resolveConfig(path, "", "")
		if err != nil {
			t.Fatalf("resolveConfig() error: %v", err)
		}
		if cfg.Target.URL != "ws://configured:9999/ws" {
			t.Errorf("Target.URL = %q", cfg.Target.URL)
		}
	})

	t.Run("invalid url rejected", func(t *testing.T) {
		if _, err := resolveConfig("", "http://example.com", ""); err == nil {
			t.Error("resolveConfig() accepted an http URL, want error")
		}
	})
}

func TestRootCommand(t *testing.T) {
	subcommands := map[string]bool{}
	for _, cmd := range RootCmd.Commands() {
		subcommands[cmd.Name()] = true
	}
	for _, want := range []string{"run", "smoke"} {
		if !subcommands[want] {
			t.Errorf("root command missing %q subcommand", want)
		}
	}
}
