// Package engine discovers focus planes by sweeping the actuator and then
// cycles through them, one small step of work per frame.
//
// Process is called from a single goroutine, once per frame, and never
// blocks. Control surfaces talk to the engine through Settings and read
// the Status snapshot; neither touches engine state directly.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/multifocus/pkg/multifocus/actuator"
	"github.com/jamesainslie/multifocus/pkg/multifocus/cycle"
	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/peaks"
	"github.com/jamesainslie/multifocus/pkg/multifocus/plan"
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sharpness"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sweep"
)

// ErrDisabled reports that the engine runs without an actuator and will
// only pass frames through.
var ErrDisabled = errors.New("focus engine disabled")

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers fn for engine events.
func WithObserver(fn Observer) Option {
	return func(e *Engine) { e.observer = fn }
}

// Engine is the focus-plane state machine. The zero value is not usable;
// construct with New or Open.
type Engine struct {
	settings *Settings
	scorer   sharpness.Scorer
	bus      actuator.Bus
	disabled bool
	observer Observer
	log      *logging.Logger

	state      State
	sweep      *sweep.Controller
	scanStart  time.Time
	scanFrames int
	idleFrames int
	sched      cycle.Scheduler
	plans      plan.List
	calib      *calibration

	frames    uint64
	lastScore int64
	lastScan  *ScanReport
	lastCalib *CalibrationResult
	latency   int
	requested int

	status atomic.Pointer[Status]
}

// New returns an engine driving bus. A nil bus yields a disabled engine.
func New(settings *Settings, scorer sharpness.Scorer, bus actuator.Bus, opts ...Option) *Engine {
	e := &Engine{
		settings: settings,
		scorer:   scorer,
		bus:      bus,
		disabled: bus == nil,
		log:      logging.Get("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publish()
	return e
}

// Open opens the actuator described by cfg. If that fails the engine is
// still returned, permanently disabled, together with an error wrapping
// ErrDisabled.
func Open(settings *Settings, scorer sharpness.Scorer, cfg actuator.Config, opts ...Option) (*Engine, error) {
	bus, err := actuator.Open(cfg)
	if err != nil {
		e := New(settings, scorer, nil, opts...)
		e.log.Error("actuator unavailable, engine disabled", "driver", cfg.Driver, "error", err)
		return e, fmt.Errorf("%w: %w", ErrDisabled, err)
	}
	return New(settings, scorer, bus, opts...), nil
}

// Settings returns the parameter store the engine reads.
func (e *Engine) Settings() *Settings {
	return e.settings
}

// Status returns the snapshot published after the last frame.
func (e *Engine) Status() Status {
	return *e.status.Load()
}

// Disabled reports whether the engine lost its actuator.
func (e *Engine) Disabled() bool {
	return e.disabled
}

// Close releases the actuator. Frames passed to Process afterwards are
// ignored.
func (e *Engine) Close() error {
	if e.bus == nil {
		return nil
	}
	bus := e.bus
	e.bus = nil
	e.disabled = true
	e.publish()

	var errs []error
	if err := bus.Disable(); err != nil {
		errs = append(errs, fmt.Errorf("disabling actuator: %w", err))
	}
	if err := bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing actuator: %w", err))
	}
	return errors.Join(errs...)
}

// Process does this frame's share of work. It never blocks and never
// modifies the frame.
func (e *Engine) Process(f frames.Frame) {
	e.frames++
	defer e.publish()

	if e.disabled {
		return
	}
	in := e.settings.take()
	if !in.Work {
		return
	}

	region := roi.Clamp(in.Region(), f.Width, f.Height)
	score := func() int64 {
		e.lastScore = e.scorer.Score(f, region)
		return e.lastScore
	}

	// plans written before a trigger are adopted first so the text and
	// the running list never diverge
	if in.plans != nil {
		e.adoptPlans(*in.plans)
	}
	if in.reset {
		e.startScan(in.Params)
	}
	if in.calibrate {
		e.startCalibration(in.Params)
	}
	if in.next {
		e.confirm(in.Params)
	}

	switch e.state.Kind {
	case Idle:
		if !in.AutoStart {
			return
		}
		if e.idleFrames < in.WaitAfterStart {
			e.idleFrames++
			return
		}
		e.startScan(in.Params)
		e.advanceSweep(in.Params, score)
	case ScanningAuto:
		e.advanceSweep(in.Params, score)
	case ScanningManual:
		if !e.state.Waiting {
			e.advanceSweep(in.Params, score)
		}
	case Steady:
		if pos, ok := e.sched.Tick(&e.plans, in.SpaceBetweenSwitch); ok {
			e.command(pos)
		}
	case Calibrating:
		e.advanceCalibration(score)
	}
}

func (e *Engine) setState(s State) {
	if s == e.state {
		return
	}
	e.log.Debug("state change", "from", e.state, "to", s)
	e.state = s
	e.settings.setBusy(s.Scanning() || s.Kind == Calibrating)
	e.emit(Event{Kind: EventStateChanged})
}

// startScan discards any sweep in flight and begins a new one.
func (e *Engine) startScan(p Params) {
	e.sweep = sweep.NewController(p.Geometry)
	e.sched.Reset()
	e.calib = nil
	e.scanStart = time.Now()
	e.scanFrames = 0
	e.latency = p.Latency
	e.requested = p.NumberOfPlans

	if p.AutoDetectPlans {
		e.setState(State{Kind: ScanningAuto})
	} else {
		e.setState(State{Kind: ScanningManual})
	}
	e.log.Info("scan started", "mode", e.mode(), "latency", p.Latency, "plans", p.NumberOfPlans)
}

func (e *Engine) mode() string {
	if e.state.Kind == ScanningManual {
		return ModeManual
	}
	return ModeAuto
}

func (e *Engine) advanceSweep(p Params, score func() int64) {
	e.scanFrames++
	cmd, done := e.sweep.Advance(e.latency, score)
	if cmd != nil {
		e.command(cmd.Position)
	}
	if !done {
		return
	}
	if e.state.Kind == ScanningAuto {
		e.finishAuto()
	} else {
		e.finishManualSlot()
	}
}

func (e *Engine) finishAuto() {
	samples := e.sweep.Buffer().Samples()
	candidates := peaks.Detect(samples)
	list, count := plan.Select(candidates, samples, e.requested, e.sweep.Geometry())

	if count == 0 {
		e.log.Warn("sweep found no sharpness peaks", "latency", e.latency)
	}
	e.plans = list
	text := e.settings.commitPlans(list, count)
	report := e.report(ModeAuto, 0, samples, candidates)
	e.log.Info("scan complete", "candidates", len(candidates), "plans", text)

	e.emit(Event{Kind: EventScanCompleted, Scan: report})
	e.enterSteady()
	e.emit(Event{Kind: EventPlansUpdated})
}

func (e *Engine) finishManualSlot() {
	buf := e.sweep.Buffer()
	samples := buf.Samples()
	best := peaks.GlobalMax(samples, buf.Len())
	if best < 0 {
		best = 0
	}
	pos := e.sweep.Geometry().PositionOf(best)
	slot := e.state.PlanIndex
	_ = e.plans.SetAt(slot, pos)
	e.command(pos)

	var candidates []int
	if buf.Len() > 0 {
		candidates = []int{best}
	}
	report := e.report(ModeManual, slot, samples, candidates)
	report.Plans = []int{pos}
	e.log.Info("manual plan found", "slot", slot, "position", pos)

	e.emit(Event{Kind: EventScanCompleted, Scan: report})
	e.setState(State{Kind: ScanningManual, PlanIndex: slot, Waiting: true})
}

// confirm handles the next trigger while a manual slot awaits it.
func (e *Engine) confirm(p Params) {
	if e.state.Kind != ScanningManual || !e.state.Waiting {
		return
	}
	slot := e.state.PlanIndex + 1
	if slot >= e.requested {
		e.plans.Truncate(e.requested)
		text := e.settings.commitPlans(e.plans, e.plans.Len())
		e.log.Info("manual plans complete", "plans", text)
		e.enterSteady()
		e.emit(Event{Kind: EventPlansUpdated})
		return
	}
	e.sweep.Restart()
	e.scanStart = time.Now()
	e.scanFrames = 0
	e.latency = p.Latency
	e.setState(State{Kind: ScanningManual, PlanIndex: slot})
}

// adoptPlans switches to a list written through Settings.SetPlans.
func (e *Engine) adoptPlans(list plan.List) {
	if e.state.Scanning() || e.state.Kind == Calibrating || list.Len() == 0 {
		return
	}
	e.plans = list
	e.log.Info("plans adopted", "plans", plan.Format(list))
	e.enterSteady()
	e.emit(Event{Kind: EventPlansUpdated})
}

func (e *Engine) enterSteady() {
	e.sched.Reset()
	e.setState(State{Kind: Steady})
}

func (e *Engine) startCalibration(p Params) {
	if e.state.Kind != Idle && e.state.Kind != Steady {
		e.log.Warn("calibration ignored while busy", "state", e.state)
		return
	}
	e.calib = newCalibration(p.Calibration, e.state)
	e.log.Info("calibration started", "jump", p.Calibration.JumpPosition)
	e.setState(State{Kind: Calibrating})
}

func (e *Engine) advanceCalibration(score func() int64) {
	cmd, res := e.calib.step(score)
	if cmd != nil {
		e.command(*cmd)
	}
	if res == nil {
		return
	}

	res.Finished = time.Now()
	if res.Aborted {
		e.log.Warn("calibration timed out", "frames", res.Frames)
	} else {
		res.Latency = e.settings.commitLatency(res.Latency)
		e.log.Info("calibration complete", "latency", res.Latency)
	}
	e.lastCalib = res
	resume := e.calib.resume
	e.calib = nil
	if resume.Kind == Steady {
		e.sched.Reset()
	}
	e.setState(resume)
	e.emit(Event{Kind: EventCalibrated, Calibration: res})
}

func (e *Engine) command(pos int) {
	if err := e.bus.SetPosition(pos); err != nil {
		e.log.Warn("actuator command failed", "position", pos, "error", err)
	}
}

func (e *Engine) report(mode string, slot int, samples []int64, candidates []int) *ScanReport {
	now := time.Now()
	r := &ScanReport{
		ID:         uuid.NewString(),
		Mode:       mode,
		Slot:       slot,
		StartedAt:  e.scanStart,
		FinishedAt: now,
		Duration:   now.Sub(e.scanStart),
		Frames:     e.scanFrames,
		Latency:    e.latency,
		Samples:    samples[:e.sweep.Geometry().Steps],
		Candidates: candidates,
		Requested:  e.requested,
		Plans:      e.plans.Positions(),
	}
	e.lastScan = r
	return r
}

func (e *Engine) emit(ev Event) {
	if e.observer == nil {
		return
	}
	ev.Time = time.Now()
	ev.State = e.state.String()
	if ev.Kind == EventPlansUpdated {
		ev.Plans = e.plans.Positions()
		ev.PlansText = plan.Format(e.plans)
	}
	e.observer(ev)
}

func (e *Engine) publish() {
	p := e.settings.Params()
	st := &Status{
		State:         e.state.String(),
		Kind:          e.state.Kind,
		PlanIndex:     e.state.PlanIndex,
		Waiting:       e.state.Waiting,
		Disabled:      e.disabled,
		Work:          p.Work,
		Plans:         e.plans.Positions(),
		PlansText:     p.Plans,
		NumberOfPlans: p.NumberOfPlans,
		Latency:       p.Latency,
		CycleIndex:    e.sched.Current(),
		Frames:        e.frames,
		LastScore:     e.lastScore,
		LastScan:      e.lastScan,
		Calibration:   e.lastCalib,
		UpdatedAt:     time.Now(),
	}
	if e.sweep != nil {
		st.SweepStep = e.sweep.Step()
	}
	e.status.Store(st)
}
