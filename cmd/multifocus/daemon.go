package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/multifocus/pkg/client"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the multifocusd daemon",
	Long: `Manage the multifocusd daemon, which owns the camera, the focus actuator
and the engine, and keeps plans and scan history across restarts.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the multifocusd daemon",
	Long:  `Start the multifocusd daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the multifocusd daemon",
	Long:  `Stop the multifocusd daemon gracefully. The actuator is released first.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the multifocusd daemon",
	Long:  `Stop and start the multifocusd daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show whether multifocusd is running, what it drives, and its health.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths := daemonPaths(appConfig)
	if client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon already running")
		return nil
	}
	printVerbose("starting daemon...")
	if err := client.StartDaemon(paths); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths := daemonPaths(appConfig)
	printVerbose("checking PID file: %s", paths.PID)
	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartDaemon(daemonPaths(appConfig)); err != nil {
		return fmt.Errorf("failed to restart daemon: %w", err)
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths := daemonPaths(appConfig)

	if !client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer daemonClient.Close()

	st, err := daemonClient.GetDaemonStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	printInfo("  PID:         %d", st.PID)
	printInfo("  Uptime:      %s", formatDuration(time.Duration(st.UptimeSeconds)*time.Second))
	printInfo("  Memory:      %s", humanize.IBytes(st.MemoryBytes))
	printInfo("  Source:      %s", st.Source)
	printInfo("  Actuator:    %s", st.Actuator)
	printInfo("  Frames:      %s", humanize.Comma(int64(st.FramesIn)))
	if st.Disabled {
		printInfo("  Engine:      disabled (actuator failed)")
	}
	if st.Panics > 0 {
		printInfo("  Panics:      %d", st.Panics)
	}
	printInfo("  Subscribers: %d", st.Subscribers)
	if st.ConfigFile != "" {
		printInfo("  Config:      %s", st.ConfigFile)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours < 24 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dd %dh", hours/24, hours%24)
}
