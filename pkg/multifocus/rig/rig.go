// Package rig assembles a frame source, a sharpness scorer and an actuator
// around an engine from configuration.
package rig

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamesainslie/multifocus/pkg/multifocus/actuator"
	"github.com/jamesainslie/multifocus/pkg/multifocus/config"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/pipeline"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sharpness"
	"github.com/jamesainslie/multifocus/pkg/multifocus/simulate"
)

// ErrUnknownSource is returned for an unsupported source.kind.
var ErrUnknownSource = errors.New("unknown frame source")

// Options customise a rig.
type Options struct {
	// Observer receives engine events. It must not block.
	Observer engine.Observer
	// Sink receives frames after the engine. Nil discards them.
	Sink pipeline.Sink
	// RestoredPlans is plan text used when the configuration has none,
	// with RestoredNumberOfPlans positions in it.
	RestoredPlans         string
	RestoredNumberOfPlans int
}

// Rig is a running set of source, engine and pipeline.
type Rig struct {
	Settings *engine.Settings
	Engine   *engine.Engine
	Source   frames.Source
	Element  *pipeline.Element

	// Lens is the simulated optics when source.kind is simulate.
	Lens *simulate.Lens

	// SourceName and ActuatorName describe the rig for status output.
	SourceName   string
	ActuatorName string

	// ActuatorErr is set when the actuator could not be opened and the
	// engine runs disabled.
	ActuatorErr error
}

// New builds a rig from cfg. An actuator failure does not fail New: the
// engine is disabled and ActuatorErr records why.
func New(cfg *config.Config, opts Options) (*Rig, error) {
	log := logging.Get("rig")

	settings := engine.NewSettings(cfg.Engine.Params())
	plans := cfg.Engine.Plans
	if plans == "" && opts.RestoredPlans != "" {
		plans = opts.RestoredPlans
		if opts.RestoredNumberOfPlans > 0 {
			settings.SetNumberOfPlans(opts.RestoredNumberOfPlans)
		}
	}
	if plans != "" {
		res := settings.SetPlans(plans)
		log.Info("initial plans", "text", plans, "parsed", res.Parsed)
	}

	var engineOpts []engine.Option
	if opts.Observer != nil {
		engineOpts = append(engineOpts, engine.WithObserver(opts.Observer))
	}

	r := &Rig{Settings: settings}

	switch cfg.Source.Kind {
	case config.SourceSimulate:
		sim := cfg.Source.Simulate
		r.Lens = simulate.NewLens(sim.Latency, sim.Planes...)
		r.Source = simulate.NewCamera(r.Lens, sim.Camera())
		r.SourceName = fmt.Sprintf("simulate (%d planes, latency %d)", len(sim.Planes), sim.Latency)
		r.ActuatorName = "simulated lens"
		bus := actuator.Limit(r.Lens, cfg.Actuator.MinPosition, cfg.Actuator.MaxPosition)
		r.Engine = engine.New(settings, r.Lens, bus, engineOpts...)

	case config.SourceDir:
		dirOpts, err := cfg.Source.Dir.Options()
		if err != nil {
			return nil, err
		}
		scorer, err := sharpness.New(cfg.Sharpness.Metric)
		if err != nil {
			return nil, err
		}
		src, err := frames.OpenDir(dirOpts)
		if err != nil {
			return nil, fmt.Errorf("opening frame directory: %w", err)
		}
		r.Source = src
		r.SourceName = "dir " + dirOpts.Dir
		r.ActuatorName = cfg.Actuator.Driver
		r.Engine, r.ActuatorErr = engine.Open(settings, scorer, cfg.Actuator, engineOpts...)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source.Kind)
	}

	r.Element = pipeline.New(r.Source, r.Engine, opts.Sink)
	return r, nil
}

// Run drives frames until the source ends or ctx is cancelled.
func (r *Rig) Run(ctx context.Context) error {
	return r.Element.Run(ctx)
}

// Close releases the actuator and the source. Call it after Run returns.
func (r *Rig) Close() error {
	return errors.Join(r.Engine.Close(), r.Source.Close())
}
