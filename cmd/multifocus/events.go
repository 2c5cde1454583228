package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream engine events",
	Long: `Print engine events from the daemon as they happen, until interrupted.
With -o json or -o jsonl each event is printed as one JSON object per line.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	events, err := c.WatchEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch events: %w", err)
	}

	asJSON := viper.GetString("output") == "json" || viper.GetString("output") == "jsonl"
	enc := json.NewEncoder(os.Stdout)
	for ev := range events {
		if asJSON {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Println(formatEvent(ev))
	}
	if ctx.Err() != nil {
		return nil
	}
	return errors.New("event stream closed by daemon")
}

// formatEvent renders an event as a single line of text.
func formatEvent(ev engine.Event) string {
	parts := []string{ev.Time.Format("15:04:05.000"), string(ev.Kind), ev.State}
	switch ev.Kind {
	case engine.EventPlansUpdated:
		parts = append(parts, "plans="+ev.PlansText)
	case engine.EventScanCompleted:
		if ev.Scan != nil {
			parts = append(parts, fmt.Sprintf("mode=%s frames=%d candidates=%v", ev.Scan.Mode, ev.Scan.Frames, ev.Scan.Candidates))
		}
	case engine.EventCalibrated:
		if ev.Calibration != nil {
			parts = append(parts, fmt.Sprintf("latency=%d aborted=%t", ev.Calibration.Latency, ev.Calibration.Aborted))
		}
	}
	return strings.Join(parts, " ")
}

