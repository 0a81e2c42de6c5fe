package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wsbench/wsbench/internal/config"
	"github.com/wsbench/wsbench/internal/loadtest"
	"github.com/wsbench/wsbench/internal/output"
	"github.com/wsbench/wsbench/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the multi-phase WebSocket load test",
	Long: `Execute escalating load phases against a WebSocket endpoint and report
per-phase statistics with a pass/fail verdict.

Config file mode:
  wsbench run --config plan.yaml

Quick CLI mode:
  wsbench run --url ws://localhost:8080/ws --phases "50:10s,100:15s,150:10s"

Managing the server under test for the duration of the run:
  wsbench run --url ws://localhost:8080/ws \
    --server-cmd ./build/aimux --server-arg --webui \
    --ready-url http://localhost:8080/metrics/comprehensive`,
	RunE: runLoadTest,
}

func init() {
	runCmd.Flags().String("config", "", "Path to a YAML/JSON phase plan")
	runCmd.Flags().String("url", "", "WebSocket endpoint URL (overrides config)")
	runCmd.Flags().String("phases", "", `Inline phase plan as "connections:duration" pairs, e.g. "50:10s,100:15s"`)
	runCmd.Flags().Bool("json", false, "Emit the full run result as JSON")
	runCmd.Flags().Bool("no-color", false, "Disable colored output")
	runCmd.Flags().String("server-cmd", "", "Server binary to start before the run and stop after")
	runCmd.Flags().StringArray("server-arg", nil, "Argument for the managed server (repeatable)")
	runCmd.Flags().String("ready-url", "", "HTTP URL polled until the managed server is ready")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	configFile, _ := cmd.Flags().GetString("config")
	urlFlag, _ := cmd.Flags().GetString("url")
	phasesFlag, _ := cmd.Flags().GetString("phases")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	serverCmd, _ := cmd.Flags().GetString("server-cmd")
	serverArgs, _ := cmd.Flags().GetStringArray("server-arg")
	readyURL, _ := cmd.Flags().GetString("ready-url")

	cfg, err := resolveConfig(configFile, urlFlag, phasesFlag)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	plan, err := cfg.PhasePlan()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if serverCmd != "" {
		proc := &server.Process{Command: serverCmd, Args: serverArgs, ReadyURL: readyURL}
		if err := proc.Start(ctx); err != nil {
			return fmt.Errorf("managed server: %w", err)
		}
		defer proc.Stop()
	}

	noColor = noColor || !output.IsTerminal(os.Stdout)
	reporter := output.NewReporter(os.Stdout, noColor)

	runner := loadtest.NewRunner(opts, loadtest.DefaultThresholds())

	if jsonOutput {
		result := runner.RunPhases(ctx, plan)
		return reporter.WriteJSON(result)
	}

	fmt.Printf("Target: %s\n\n", cfg.Target.URL)
	runner.PhaseStarted = func(index, total int, phase loadtest.PhaseConfig) {
		reporter.PhaseHeader(index+1, total, phase.Connections)
	}
	runner.PhaseFinished = func(index int, report *loadtest.PerformanceReport) {
		reporter.PhaseReport(report)
	}

	result := runner.RunPhases(ctx, plan)
	reporter.Summary(result)

	if !result.RequirementsMet {
		return fmt.Errorf("performance requirements not met")
	}
	return nil
}

// resolveConfig builds the run configuration from a file, flags, or the
// built-in default plan, in that order of precedence.
func resolveConfig(configFile, urlFlag, phasesFlag string) (*config.Config, error) {
	cfg := config.Default()

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if urlFlag != "" {
		cfg.Target.URL = urlFlag
	}
	if phasesFlag != "" {
		phases, err := parsePhasesFlag(phasesFlag)
		if err != nil {
			return nil, err
		}
		cfg.Phases = phases
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parsePhasesFlag parses an inline plan like "50:10s,100:15s,150:10s".
func parsePhasesFlag(s string) ([]config.Phase, error) {
	var phases []config.Phase
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid phase '%s', want connections:duration", part)
		}

		connections, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid connection count in phase '%s': %w", part, err)
		}

		phases = append(phases, config.Phase{
			Connections: connections,
			Duration:    strings.TrimSpace(fields[1]),
		})
	}

	if len(phases) == 0 {
		return nil, fmt.Errorf("no phases in '%s'", s)
	}
	return phases, nil
}
