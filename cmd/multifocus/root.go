package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
)

var (
	cfgFile string

	// appConfig is loaded by the PersistentPreRunE hook.
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "multifocus",
		Short: "Discover and cycle focus planes",
		Long: `Multifocus drives a focus actuator to find the sharpest focus positions
("plans") in a scene and then cycles through them frame by frame.

The engine normally runs inside multifocusd, which this command controls over
a unix socket and starts on demand. 'run' and 'simulate' run it in the
foreground instead.

Examples:
  multifocus simulate               # Discover planes with a simulated lens
  multifocus status                 # Show engine status from the daemon
  multifocus reset                  # Restart plan discovery
  multifocus plans set "100;310;550;"
  multifocus set latency=4 number_of_plans=2
  multifocus console                # Interactive operator console
  multifocus history -o json        # Recorded scans as JSON`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/multifocus/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty",
		fmt.Sprintf("output format (%s)", strings.Join(output.Available(), ", ")))
	rootCmd.PersistentFlags().String("template", "", "Go template for -o template")
	rootCmd.PersistentFlags().String("socket", "", "daemon socket (default from config)")
	rootCmd.PersistentFlags().Bool("no-autostart", false, "do not start the daemon when it is not running")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("socket", rootCmd.PersistentFlags().Lookup("socket"))
	_ = viper.BindPFlag("no_autostart", rootCmd.PersistentFlags().Lookup("no-autostart"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
