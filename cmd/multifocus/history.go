package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/multifocus/pkg/client"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded scans and calibrations",
	Long: `View the scans and latency calibrations recorded by the daemon, newest
first. The daemon keeps store.keep_scans scans.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries to show")
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent scans.
func runHistory(cmd *cobra.Command, _ []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
		h, err := c.History(ctx, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}
		if len(h.Scans) == 0 && len(h.Calibrations) == 0 {
			printInfo("No scans recorded yet.")
			printInfo("Run 'multifocus reset' to start plan discovery.")
			return nil
		}
		return render(&output.Result{
			Scans:        h.Scans,
			Calibrations: h.Calibrations,
			Source:       appConfig.Daemon.SocketPath,
			DaemonUp:     true,
		})
	})
}
