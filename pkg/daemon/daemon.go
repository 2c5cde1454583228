// Package daemon runs the focus engine in the background and exposes it
// over gRPC on a unix socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	focusv1 "github.com/jamesainslie/multifocus/pkg/api/focus/v1"
	"github.com/jamesainslie/multifocus/pkg/daemon/broadcaster"
	"github.com/jamesainslie/multifocus/pkg/daemon/store"
	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/rig"
)

// stopTimeout bounds how long in-flight RPCs may run during shutdown.
const stopTimeout = 5 * time.Second

// RunOption customises Run.
type RunOption func(*runOptions)

type runOptions struct {
	ready func(socketPath string)
}

// WithReady registers fn to be called once the socket accepts connections.
func WithReady(fn func(socketPath string)) RunOption {
	return func(o *runOptions) { o.ready = fn }
}

// Run builds the rig described by cfg, serves it until ctx is cancelled
// or a client calls Shutdown, then stops everything in reverse order.
// Plans persisted by a previous run are restored when cfg has none.
func Run(ctx context.Context, cfg *config.Config, opts ...RunOption) error {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	log := logging.Get("daemon")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	socketPath, err := config.ExpandPath(cfg.Daemon.SocketPath)
	if err != nil {
		return err
	}
	storePath, err := config.ExpandPath(cfg.Store.Path)
	if err != nil {
		return err
	}

	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()

	rigOpts := rig.Options{}
	rec, err := st.LoadPlans()
	switch {
	case err == nil:
		rigOpts.RestoredPlans = rec.Text
		rigOpts.RestoredNumberOfPlans = rec.NumberOfPlans
		log.Info("restored plans", "text", rec.Text, "saved", rec.UpdatedAt)
	case !errors.Is(err, store.ErrNotFound):
		log.Warn("failed to load saved plans", "error", err)
	}

	b := broadcaster.New()
	defer b.Close()
	recorder := NewRecorder(st, cfg.Store.KeepScans)
	defer recorder.Close()

	rigOpts.Observer = func(ev engine.Event) {
		recorder.Observe(ev)
		b.Notify(ev)
	}

	r, err := rig.New(cfg, rigOpts)
	if err != nil {
		return fmt.Errorf("building rig: %w", err)
	}
	if r.ActuatorErr != nil {
		log.Error("running without actuator", "error", r.ActuatorErr)
	}

	cfg.Watch(func(prev, next config.EngineConfig) {
		if err := config.Apply(r.Settings, prev, next); err != nil {
			log.Warn("some reloaded parameters were rejected", "error", err)
		}
	})

	svc := NewService(ServiceConfig{
		Engine:      r.Engine,
		Store:       st,
		Broadcaster: b,
		Shutdown:    cancel,
		Info: func() focusv1.DaemonStatus {
			stats := r.Element.Stats()
			return focusv1.DaemonStatus{
				Source:     r.SourceName,
				Actuator:   r.ActuatorName,
				FramesIn:   stats.In,
				Panics:     stats.Panics,
				ConfigFile: cfg.File(),
			}
		},
	})

	srv, err := NewServer(Config{SocketPath: socketPath}, svc)
	if err != nil {
		_ = r.Close()
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	rigDone := make(chan error, 1)
	go func() {
		err := r.Run(ctx)
		if err == nil {
			log.Info("frame source finished, serving until stopped")
		}
		rigDone <- err
	}()

	log.Info("daemon started", "socket", socketPath, "source", r.SourceName, "actuator", r.ActuatorName)
	if ro.ready != nil {
		ro.ready(socketPath)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("serving: %w", err)
	}
	cancel()

	log.Info("shutting down")
	// ends WatchEvents streams so the graceful stop only waits on unary calls
	b.Close()
	if err := srv.Shutdown(stopTimeout); err != nil {
		log.Warn("failed to remove socket", "error", err)
	}
	if err := <-rigDone; err != nil && !errors.Is(err, context.Canceled) {
		runErr = errors.Join(runErr, err)
	}
	if err := r.Close(); err != nil {
		log.Warn("failed to release rig", "error", err)
	}
	return runErr
}
