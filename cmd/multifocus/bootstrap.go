package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/multifocus/pkg/client"
	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
)

// initializeLogging is the PersistentPreRunE hook. It loads configuration,
// creates the XDG directories and starts file logging.
func initializeLogging(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if socket := viper.GetString("socket"); socket != "" {
		cfg.Daemon.SocketPath = socket
	}
	appConfig = cfg

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	return startLogging(cfg, false)
}

// initTUILogging re-initializes logging for the console: records are kept
// in memory for the log pane and nothing is mirrored to the terminal.
func initTUILogging() error {
	return startLogging(appConfig, true)
}

func startLogging(cfg *config.Config, capture bool) error {
	logCfg, err := cfg.Logging.Logging()
	if err != nil {
		return err
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
		logCfg.Components = nil
		logCfg.Level = "debug"
	}
	logCfg.Capture = capture
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	return nil
}

// daemonPaths describes the daemon this invocation talks to.
func daemonPaths(cfg *config.Config) client.DaemonPaths {
	return client.DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Socket: cfg.Daemon.SocketPath,
		PID:    cfg.Daemon.PIDPath,
		Config: cfg.File(),
	}
}

// maybeStartDaemon starts multifocusd when auto-start is enabled and it is
// not already running.
func maybeStartDaemon(cfg *config.Config) error {
	if !cfg.Daemon.AutoStart || viper.GetBool("no_autostart") {
		return nil
	}
	if client.IsDaemonRunning(cfg.Daemon.PIDPath) {
		return nil
	}
	printVerbose("starting daemon")
	return client.StartDaemon(daemonPaths(cfg))
}

// connectDaemon returns a client for the configured daemon, starting it if
// allowed.
func connectDaemon(ctx context.Context) (*client.Client, error) {
	if err := maybeStartDaemon(appConfig); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}
	c, err := client.ConnectWithContext(ctx, appConfig.Daemon.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w (start it with: multifocus daemon start)", err)
	}
	return c, nil
}

// formatter returns the formatter selected with -o.
func formatter() (output.Formatter, error) {
	name := viper.GetString("output")
	if name == "" {
		name = "pretty"
	}
	if name == "template" {
		tmpl := viper.GetString("template")
		if tmpl == "" {
			return nil, errors.New("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmpl), nil
	}
	f, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return f, nil
}

// render prints r with the selected formatter.
func render(r *output.Result) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}
