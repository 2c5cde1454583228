package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/multifocus/pkg/multifocus/actuator"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sharpness"
	"github.com/jamesainslie/multifocus/pkg/multifocus/simulate"
)

var testFrame = frames.Frame{Width: 640, Height: 480}

func params(mod func(*engine.Params)) engine.Params {
	p := engine.DefaultParams()
	if mod != nil {
		mod(&p)
	}
	return p
}

func feed(e *engine.Engine, n int) {
	for range n {
		e.Process(testFrame)
	}
}

// feedLens ticks the simulated lens before every frame, like the camera.
func feedLens(e *engine.Engine, lens *simulate.Lens, n int) {
	for range n {
		lens.Tick()
		e.Process(testFrame)
	}
}

// peakAt returns a scorer whose i-th sample lands in buffer slot i+1 with
// latency-offset sampling, forming a single peak at index k.
func peakAt(k int) sharpness.Scorer {
	calls := 0
	return sharpness.Func(func(frames.Frame, roi.Region) int64 {
		calls++
		d := calls - k
		if d < 0 {
			d = -d
		}
		return int64(1000 - 10*d)
	})
}

func TestSweepFindsSinglePeak(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.Latency = 3
		p.NumberOfPlans = 1
	}))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(40), rec)

	settings.Reset()
	feed(e, 80)

	st := e.Status()
	assert.Equal(t, engine.Steady, st.Kind)
	assert.Equal(t, []int{310}, st.Plans)
	assert.Equal(t, "310;", settings.Plans())
	assert.Equal(t, 1, settings.Params().NumberOfPlans)
	require.NotNil(t, st.LastScan)
	assert.Equal(t, []int{40}, st.LastScan.Candidates)
	assert.Equal(t, 80, st.LastScan.Frames)
	assert.Len(t, st.LastScan.Samples, 80)

	cmds := rec.Positions()
	require.Len(t, cmds, 80)
	for i, c := range cmds {
		assert.Equal(t, (i-9)*10, c, "step %d", i)
	}

	feed(e, 1)
	last, _ := rec.Last()
	assert.Equal(t, 310, last)
}

func TestSweepReducesRequestedPlans(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.NumberOfPlans = 5
	}))
	e := engine.New(settings, peakAt(40), &actuator.Recorder{})

	settings.Reset()
	feed(e, 80)

	assert.Equal(t, []int{310}, e.Status().Plans)
	assert.Equal(t, 1, settings.Params().NumberOfPlans)
}

func TestSweepWithSimulatedLens(t *testing.T) {
	tests := []struct {
		name  string
		plans int
		want  []int
	}{
		{"all peaks ascending", 3, []int{100, 310, 550}},
		{"sharpest two", 2, []int{310, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lens := simulate.NewLens(3)
			settings := engine.NewSettings(params(func(p *engine.Params) {
				p.Latency = 3
				p.NumberOfPlans = tt.plans
			}))
			e := engine.New(settings, lens, lens)

			settings.Reset()
			feedLens(e, lens, 80)

			assert.Equal(t, tt.want, e.Status().Plans)
			assert.Equal(t, engine.Steady, e.Status().Kind)
		})
	}
}

func TestSteadyCyclesAdoptedPlans(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.SpaceBetweenSwitch = 1
	}))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(1), rec)

	res := settings.SetPlans("0;200;400;")
	assert.True(t, res.Complete)

	feed(e, 8)
	assert.Equal(t, engine.Steady, e.Status().Kind)
	assert.Equal(t, []int{0, 200, 400, 0}, rec.Positions())
	assert.Equal(t, "0;200;400;", settings.Plans())
}

func TestResetMidCycleRestartsSweep(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(40), rec)

	settings.SetPlans("0;200;400;")
	feed(e, 5)
	require.Equal(t, engine.Steady, e.Status().Kind)

	rec.Reset()
	settings.Reset()
	feed(e, 3)

	st := e.Status()
	assert.Equal(t, engine.ScanningAuto, st.Kind)
	assert.Equal(t, 3, st.SweepStep)
	assert.Equal(t, []int{-90, -80, -70}, rec.Positions())
}

func TestResetMidScanDiscardsSweep(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(40), rec)

	settings.Reset()
	feed(e, 30)
	settings.Reset()
	feed(e, 1)

	assert.Equal(t, 1, e.Status().SweepStep)
	last, _ := rec.Last()
	assert.Equal(t, -90, last)
}

func TestManualScan(t *testing.T) {
	lens := simulate.NewLens(3, simulate.Plane{Position: 200, Peak: 1000, Width: 30})
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.AutoDetectPlans = false
		p.NumberOfPlans = 2
		p.Latency = 3
	}))
	var events []engine.Event
	e := engine.New(settings, lens, lens, engine.WithObserver(func(ev engine.Event) {
		events = append(events, ev)
	}))

	settings.Reset()
	feedLens(e, lens, 80)

	st := e.Status()
	assert.Equal(t, engine.ScanningManual, st.Kind)
	assert.True(t, st.Waiting)
	assert.Equal(t, 0, st.PlanIndex)
	assert.Equal(t, 200, lens.Commands()[len(lens.Commands())-1])

	// Waiting: extra frames change nothing.
	feedLens(e, lens, 10)
	assert.True(t, e.Status().Waiting)

	lens.SetPlanes(simulate.Plane{Position: 450, Peak: 1000, Width: 30})
	settings.Next()
	feedLens(e, lens, 80)

	st = e.Status()
	assert.Equal(t, 1, st.PlanIndex)
	assert.True(t, st.Waiting)

	settings.Next()
	feedLens(e, lens, 1)

	st = e.Status()
	assert.Equal(t, engine.Steady, st.Kind)
	assert.Equal(t, []int{200, 450}, st.Plans)
	assert.Equal(t, "200;450;", settings.Plans())

	var kinds []engine.EventKind
	for _, ev := range events {
		if ev.Kind != engine.EventStateChanged {
			kinds = append(kinds, ev.Kind)
		}
	}
	assert.Equal(t, []engine.EventKind{
		engine.EventScanCompleted,
		engine.EventScanCompleted,
		engine.EventPlansUpdated,
	}, kinds)
	assert.Equal(t, "200;450;", events[len(events)-1].PlansText)
}

func TestNextIgnoredOutsideManualWait(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	e := engine.New(settings, peakAt(40), &actuator.Recorder{})

	settings.Next()
	feed(e, 1)
	assert.Equal(t, engine.Idle, e.Status().Kind)
}

func TestWorkDisabledFreezesEngine(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) { p.Work = false }))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(40), rec)

	settings.Reset()
	feed(e, 10)
	assert.Equal(t, engine.Idle, e.Status().Kind)
	assert.Empty(t, rec.Positions())
	assert.Equal(t, uint64(10), e.Status().Frames)

	settings.SetWork(true)
	feed(e, 1)
	assert.Equal(t, engine.ScanningAuto, e.Status().Kind)
	assert.Equal(t, []int{-90}, rec.Positions())
}

func TestWorkDisabledMidCycle(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) { p.SpaceBetweenSwitch = 1 }))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(1), rec)

	settings.SetPlans("0;200;400;")
	feed(e, 3)
	settings.SetWork(false)
	feed(e, 10)
	settings.SetWork(true)
	feed(e, 2)

	assert.Equal(t, []int{0, 200, 400}, rec.Positions())
}

func TestAutoStart(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.AutoStart = true
		p.WaitAfterStart = 5
	}))
	rec := &actuator.Recorder{}
	e := engine.New(settings, peakAt(40), rec)

	feed(e, 5)
	assert.Equal(t, engine.Idle, e.Status().Kind)
	assert.Empty(t, rec.Positions())

	feed(e, 1)
	assert.Equal(t, engine.ScanningAuto, e.Status().Kind)
	assert.Equal(t, []int{-90}, rec.Positions())
}

func TestRestoredPlansSkipAutoStart(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.AutoStart = true
		p.WaitAfterStart = 1
		p.Plans = "120;340;560;"
	}))
	e := engine.New(settings, peakAt(40), &actuator.Recorder{})

	feed(e, 3)
	assert.Equal(t, engine.Steady, e.Status().Kind)
	assert.Equal(t, []int{120, 340, 560}, e.Status().Plans)
}

func TestExternalPlansIgnoredWhileScanning(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	e := engine.New(settings, peakAt(40), &actuator.Recorder{})

	settings.Reset()
	feed(e, 10)
	res := settings.SetPlans("1;2;3;")
	feed(e, 1)

	assert.Equal(t, 0, res.Parsed)
	st := e.Status()
	assert.Equal(t, engine.ScanningAuto, st.Kind)
	assert.Empty(t, settings.Plans())
	assert.Empty(t, st.PlansText)

	feed(e, 200)
	st = e.Status()
	require.Equal(t, engine.Steady, st.Kind)
	assert.Equal(t, []int{310}, st.Plans)
	assert.Equal(t, "310;", st.PlansText)
	assert.Equal(t, st.PlansText, settings.Plans())
}

func TestExternalPlansBeforeResetAreKept(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	e := engine.New(settings, peakAt(40), &actuator.Recorder{})

	settings.SetPlans("0;200;400;")
	settings.Reset()
	feed(e, 1)

	st := e.Status()
	assert.Equal(t, engine.ScanningAuto, st.Kind)
	assert.Equal(t, []int{0, 200, 400}, st.Plans)
	assert.Equal(t, "0;200;400;", st.PlansText)
}

func TestDisabledEnginePassesFrames(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	e, err := engine.Open(settings, peakAt(40), actuator.Config{Driver: "carrier-pigeon"})
	require.ErrorIs(t, err, engine.ErrDisabled)
	require.ErrorIs(t, err, actuator.ErrUnknownDriver)
	require.NotNil(t, e)

	settings.Reset()
	settings.SetPlans("0;200;400;")
	assert.NotPanics(t, func() { feed(e, 100) })

	st := e.Status()
	assert.True(t, st.Disabled)
	assert.Equal(t, engine.Idle, st.Kind)
	assert.Equal(t, uint64(100), st.Frames)
	assert.NoError(t, e.Close())
}

func TestOpenNoneDriver(t *testing.T) {
	e, err := engine.Open(engine.NewSettings(params(nil)), peakAt(40), actuator.Config{Driver: actuator.DriverNone})
	require.NoError(t, err)
	assert.False(t, e.Disabled())
}

func TestCloseDisablesActuator(t *testing.T) {
	rec := &actuator.Recorder{}
	settings := engine.NewSettings(params(nil))
	e := engine.New(settings, peakAt(40), rec)

	require.NoError(t, e.Close())
	assert.True(t, rec.Disabled())
	assert.True(t, rec.Closed())
	assert.True(t, e.Status().Disabled)

	settings.Reset()
	feed(e, 5)
	assert.Empty(t, rec.Positions())
}

func TestActuatorErrorsDoNotStopScan(t *testing.T) {
	settings := engine.NewSettings(params(func(p *engine.Params) { p.NumberOfPlans = 1 }))
	rec := &actuator.Recorder{Err: assert.AnError}
	e := engine.New(settings, peakAt(40), rec)

	settings.Reset()
	feed(e, 80)
	assert.Equal(t, []int{310}, e.Status().Plans)
}

func TestNoPeaksLeavesEmptyPlanList(t *testing.T) {
	settings := engine.NewSettings(params(nil))
	flat := sharpness.Func(func(frames.Frame, roi.Region) int64 { return 100 })
	rec := &actuator.Recorder{}
	e := engine.New(settings, flat, rec)

	settings.Reset()
	feed(e, 80)
	rec.Reset()
	feed(e, 20)

	st := e.Status()
	assert.Equal(t, engine.Steady, st.Kind)
	assert.Empty(t, st.Plans)
	assert.Empty(t, rec.Positions())
	assert.Equal(t, 3, settings.Params().NumberOfPlans)
}

func TestRegionIsClampedToFrame(t *testing.T) {
	var seen []roi.Region
	scorer := sharpness.Func(func(_ frames.Frame, r roi.Region) int64 {
		seen = append(seen, r)
		return 0
	})
	settings := engine.NewSettings(params(func(p *engine.Params) {
		p.ROI1X, p.ROI1Y, p.ROI2X, p.ROI2Y = 600, 400, 100, 100
		p.Latency = 1
	}))
	e := engine.New(settings, scorer, &actuator.Recorder{})

	settings.Reset()
	for range 3 {
		e.Process(frames.Frame{Width: 320, Height: 240})
	}

	require.NotEmpty(t, seen)
	assert.Equal(t, roi.Region{X: 100, Y: 100, Width: 220, Height: 140}, seen[0])
}
