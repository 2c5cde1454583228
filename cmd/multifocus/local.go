package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jamesainslie/multifocus/pkg/daemon/broadcaster"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/rig"
)

// localBackend drives a rig running in this process, for 'run --console'.
type localBackend struct {
	rig         *rig.Rig
	broadcaster *broadcaster.Broadcaster
}

func (l *localBackend) Status(context.Context) (*engine.Status, error) {
	st := l.rig.Engine.Status()
	return &st, nil
}

func (l *localBackend) Reset(context.Context) error {
	l.rig.Settings.Reset()
	return nil
}

func (l *localBackend) Next(context.Context) error {
	l.rig.Settings.Next()
	return nil
}

func (l *localBackend) Calibrate(context.Context) error {
	l.rig.Settings.Calibrate()
	return nil
}

func (l *localBackend) SetWork(_ context.Context, on bool) error {
	l.rig.Settings.SetWork(on)
	return nil
}

// SetParams validates every key before applying any, like the daemon.
func (l *localBackend) SetParams(_ context.Context, params map[string]any) error {
	values := make(map[string]any, len(params))
	for k, v := range params {
		key := strings.ToLower(strings.TrimSpace(k))
		if !slices.Contains(engine.Keys, key) {
			return fmt.Errorf("unknown parameter %q", k)
		}
		values[key] = v
	}
	var errs []error
	for _, key := range engine.Keys {
		if v, ok := values[key]; ok {
			errs = append(errs, l.rig.Settings.Set(key, v))
		}
	}
	return errors.Join(errs...)
}

// WatchEvents streams events until ctx is done.
func (l *localBackend) WatchEvents(ctx context.Context) (<-chan engine.Event, error) {
	sub := l.broadcaster.Subscribe()
	if sub == nil {
		return nil, errors.New("event broadcaster closed")
	}
	go func() {
		<-ctx.Done()
		l.broadcaster.Unsubscribe(sub.ID)
	}()
	return sub.Events, nil
}
