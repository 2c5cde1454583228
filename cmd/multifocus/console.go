package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/multifocus/cmd/multifocus/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive operator console",
	Long: `Open an interactive console attached to the daemon. It shows the engine
state, the plans and the last sweep's sharpness curve, streams engine events,
and maps keys to commands:

  r  reset discovery        n  confirm manual plane
  c  calibrate latency      w  toggle work
  +  more planes            -  fewer planes
  ]  more latency           [  less latency
  q  quit

Use 'multifocus run --console' to run the engine in this process instead.`,
	Args: cobra.NoArgs,
	RunE: runConsoleCmd,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsoleCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	return tui.Run(tui.Options{
		Backend: c,
		Source:  appConfig.Daemon.SocketPath,
	})
}
