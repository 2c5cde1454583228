package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/multifocus/pkg/client"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
)

// rpcTimeout bounds single request commands.
const rpcTimeout = 10 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status",
	Long: `Show the engine state, the current plans and the last scan as reported
by the daemon. Use -o to pick the output format.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restart plan discovery",
	Long: `Restart plan discovery. With auto_detect_plans a single sweep finds all
planes; otherwise each plane is scanned in turn and confirmed with 'next'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
			if err := c.Reset(ctx); err != nil {
				return err
			}
			printInfo("Discovery restarted")
			return nil
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Confirm the current manual plane",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
			return c.Next(ctx)
		})
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Measure actuator latency",
	Long: `Move the lens once and count the frames until the image changes. The
measured value replaces the latency parameter.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
			if err := c.Calibrate(ctx); err != nil {
				return err
			}
			printInfo("Calibration started")
			return nil
		})
	},
}

var workCmd = &cobra.Command{
	Use:       "work on|off",
	Short:     "Enable or freeze the engine",
	Long:      `Turn frame processing on or off. While off the lens is not moved.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runWork,
}

var setCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Set engine parameters",
	Long: `Set one or more engine parameters. Keys are validated before any is
applied; number_of_plans is applied before plans.

Examples:
  multifocus set latency=4
  multifocus set number_of_plans=2 plans="120;480;"
  multifocus set roi1x=100 roi1y=100 roi2x=540 roi2y=380`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(workCmd)
	rootCmd.AddCommand(setCmd)
}

// withClient connects to the daemon and runs fn with a bounded context.
func withClient(parent context.Context, fn func(context.Context, *client.Client) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, rpcTimeout)
	defer cancel()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
		st, err := c.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		return render(&output.Result{
			Status:   st,
			Source:   appConfig.Daemon.SocketPath,
			DaemonUp: true,
		})
	})
}

func runWork(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
		return c.SetWork(ctx, on)
	})
}

func runSet(cmd *cobra.Command, args []string) error {
	params, err := parseAssignments(args)
	if err != nil {
		return err
	}
	return withClient(cmd.Context(), func(ctx context.Context, c *client.Client) error {
		if err := c.SetParams(ctx, params); err != nil {
			return err
		}
		printVerbose("set %d parameter(s)", len(params))
		return nil
	})
}

// parseOnOff accepts on/off and the usual boolean spellings.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// parseAssignments turns key=value arguments into a parameter map. Values
// stay strings; the engine converts them.
func parseAssignments(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", arg)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("parameter %q given twice", key)
		}
		params[key] = value
	}
	if len(params) == 0 {
		return nil, errors.New("no parameters given")
	}
	return params, nil
}
