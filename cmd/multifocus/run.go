package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/multifocus/cmd/multifocus/tui"
	"github.com/jamesainslie/multifocus/pkg/daemon/broadcaster"
	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
	"github.com/jamesainslie/multifocus/pkg/multifocus/rig"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine in the foreground",
	Long: `Run the frame source, engine and actuator from the configuration in this
process instead of the daemon. The final status is printed when the source
ends or on Ctrl-C.

Use --console to drive the engine interactively while it runs.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Discover planes with a simulated lens",
	Long: `Run plan discovery against a simulated lens and camera and print the
result. The simulated planes and latency come from source.simulate in the
configuration.

Examples:
  multifocus simulate
  multifocus simulate --frames 600 --latency 5
  multifocus simulate --manual -o json`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var (
	runConsole bool
	runFrames  uint64
	runTimeout time.Duration

	simFrames  uint64
	simLatency int
	simFPS     float64
	simManual  bool
)

func init() {
	runCmd.Flags().BoolVar(&runConsole, "console", false, "open the operator console")
	runCmd.Flags().Uint64Var(&runFrames, "frames", 0, "stop after this many simulated frames (0 = configured)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "stop after this long (0 = no limit)")

	simulateCmd.Flags().Uint64Var(&simFrames, "frames", 300, "frames to simulate")
	simulateCmd.Flags().IntVar(&simLatency, "latency", 0, "lens latency in frames (0 = configured)")
	simulateCmd.Flags().Float64Var(&simFPS, "fps", 0, "frame rate (0 = as fast as possible)")
	simulateCmd.Flags().BoolVar(&simManual, "manual", false, "scan each plane separately, confirming automatically")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if runFrames > 0 {
		cfg.Source.Simulate.Frames = runFrames
	}
	return runLocal(cmd.Context(), cfg, localOptions{
		console: runConsole,
		timeout: runTimeout,
	})
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	cfg.Source.Kind = config.SourceSimulate
	cfg.Source.Simulate.Frames = simFrames
	cfg.Source.Simulate.FPS = simFPS
	if simLatency > 0 {
		cfg.Source.Simulate.Latency = simLatency
		cfg.Engine.Latency = simLatency
	}
	cfg.Engine.Work = true
	cfg.Engine.AutoStart = true
	cfg.Engine.Plans = ""
	if simManual {
		cfg.Engine.AutoDetectPlans = false
	}
	return runLocal(cmd.Context(), cfg, localOptions{autoConfirm: simManual})
}

type localOptions struct {
	console bool
	timeout time.Duration
	// autoConfirm answers every manual waiting slot with Next.
	autoConfirm bool
}

// runLocal runs a rig in the foreground and prints its final status.
func runLocal(parent context.Context, cfg *config.Config, opts localOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	b := broadcaster.New()
	defer b.Close()

	var scans []engine.ScanReport
	var calibrations []engine.CalibrationResult
	var settings *engine.Settings
	observer := func(ev engine.Event) {
		switch {
		case ev.Kind == engine.EventScanCompleted && ev.Scan != nil:
			scans = append(scans, *ev.Scan)
		case ev.Kind == engine.EventCalibrated && ev.Calibration != nil:
			calibrations = append(calibrations, *ev.Calibration)
		case ev.Kind == engine.EventStateChanged && opts.autoConfirm && settings != nil &&
			strings.HasSuffix(ev.State, "waiting"):
			settings.Next()
		}
		b.Notify(ev)
	}

	if opts.console {
		if err := initTUILogging(); err != nil {
			return err
		}
	}

	r, err := rig.New(cfg, rig.Options{Observer: observer})
	if err != nil {
		return err
	}
	settings = r.Settings
	if r.ActuatorErr != nil {
		printError("actuator unavailable, engine disabled: %v", r.ActuatorErr)
	}
	printVerbose("source: %s, actuator: %s", r.SourceName, r.ActuatorName)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx) }()

	if opts.console {
		consoleErr := tui.Run(tui.Options{
			Backend: &localBackend{rig: r, broadcaster: b},
			Source:  "local " + r.SourceName,
			Logs:    true,
		})
		cancelRun()
		runErr := <-done
		if err := r.Close(); err != nil {
			printError("releasing rig: %v", err)
		}
		if consoleErr != nil {
			return consoleErr
		}
		return ignoreCanceled(runErr)
	}

	runErr := ignoreCanceled(<-done)
	if err := r.Close(); err != nil {
		printError("releasing rig: %v", err)
	}
	if runErr != nil {
		return fmt.Errorf("running rig: %w", runErr)
	}

	st := r.Engine.Status()
	// Newest first, as the daemon returns history.
	slices.Reverse(scans)
	slices.Reverse(calibrations)
	return render(&output.Result{
		Status:       &st,
		Scans:        scans,
		Calibrations: calibrations,
		Source:       "local",
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
