package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wsbench/wsbench/internal/output"
	"github.com/wsbench/wsbench/internal/smoke"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run single-shot smoke checks against the server",
	Long: `Verify the server's surface without load: fetch the comprehensive
metrics endpoint and validate its shape, then open one WebSocket
connection and exchange a ping.

  wsbench smoke --metrics-url http://localhost:8080/metrics/comprehensive \
    --ws-url ws://localhost:8080/ws`,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().String("metrics-url", "http://localhost:8080/metrics/comprehensive", "Comprehensive metrics endpoint")
	smokeCmd.Flags().String("ws-url", "ws://localhost:8080/ws", "WebSocket endpoint")
	smokeCmd.Flags().Duration("timeout", 5*time.Second, "Per-check timeout")
	smokeCmd.Flags().Bool("no-color", false, "Disable colored output")
}

func runSmoke(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	metricsURL, _ := cmd.Flags().GetString("metrics-url")
	wsURL, _ := cmd.Flags().GetString("ws-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	noColor, _ := cmd.Flags().GetBool("no-color")

	checker, err := smoke.NewChecker(timeout)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	noColor = noColor || !output.IsTerminal(os.Stdout)
	results := []smoke.CheckResult{
		checker.CheckMetricsEndpoint(ctx, metricsURL),
		checker.CheckWebSocket(ctx, wsURL),
	}

	failed := 0
	for _, result := range results {
		icon := output.PassIcon(noColor)
		if !result.Passed {
			icon = output.FailIcon(noColor)
			failed++
		}
		fmt.Printf("%s %s (%.0fms)", icon, result.Name, float64(result.Elapsed.Milliseconds()))
		if result.Detail != "" {
			fmt.Printf(": %s", result.Detail)
		}
		fmt.Println()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d smoke checks failed", failed, len(results))
	}
	return nil
}
