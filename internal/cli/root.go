// Package cli wires the wsbench commands.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:     "wsbench",
	Short:   "A concurrent WebSocket load-testing harness",
	Version: version,
	Long: `wsbench opens many simultaneous WebSocket connections against a target
server, measures per-message latency against server-embedded timestamps,
and evaluates each load phase against fixed performance criteria.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(smokeCmd)
}
