// Command multifocusd runs the focus engine in the background and serves
// the multifocus control API on a unix socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/jamesainslie/multifocus/pkg/daemon"
	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "multifocusd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "config file (default: ~/.config/multifocus/config.yaml)")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	logCfg, err := cfg.Logging.Logging()
	if err != nil {
		return err
	}
	logCfg.ConsoleLevel = ""
	if err := logging.Init(logCfg); err != nil {
		return err
	}
	defer logging.Close()
	log := logging.Get("daemon")

	pidPath, err := config.ExpandPath(cfg.Daemon.PIDPath)
	if err != nil {
		return err
	}
	socketPath, err := config.ExpandPath(cfg.Daemon.SocketPath)
	if err != nil {
		return err
	}
	storePath, err := config.ExpandPath(cfg.Store.Path)
	if err != nil {
		return err
	}
	statusPath := daemon.StatusPath(filepath.Dir(socketPath))

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, storePath); err != nil {
		if errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
			return errors.New("multifocusd is already running")
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pidPath), 0o755); err != nil {
		return err
	}
	lock, err := daemon.AcquirePIDLock(pidPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("multifocusd starting", "pid", os.Getpid(), "socket", socketPath, "config", cfg.File())
	err = daemon.Run(ctx, cfg, daemon.WithReady(func(string) {
		if err := daemon.WriteStatusReady(statusPath); err != nil {
			log.Warn("failed to write status file", "error", err)
		}
	}))
	if err != nil {
		log.Error("daemon failed", "error", err)
		_ = daemon.WriteStatusError(statusPath, err)
		return err
	}
	_ = daemon.RemoveStatus(statusPath)
	log.Info("multifocusd stopped")
	return nil
}
