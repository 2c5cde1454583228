package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

func TestSettingsClampRanges(t *testing.T) {
	s := engine.NewSettings(engine.DefaultParams())

	tests := []struct {
		key   string
		value any
		get   func(engine.Params) int
		want  int
	}{
		{engine.KeyNumberOfPlans, 0, func(p engine.Params) int { return p.NumberOfPlans }, 1},
		{engine.KeyNumberOfPlans, 99, func(p engine.Params) int { return p.NumberOfPlans }, 50},
		{engine.KeyLatency, -4, func(p engine.Params) int { return p.Latency }, 1},
		{engine.KeyLatency, "300", func(p engine.Params) int { return p.Latency }, 120},
		{engine.KeyWaitAfterStart, 7, func(p engine.Params) int { return p.WaitAfterStart }, 7},
		{engine.KeySpaceBetweenSwitch, 121, func(p engine.Params) int { return p.SpaceBetweenSwitch }, 120},
		{engine.KeyROI2X, 1920.0, func(p engine.Params) int { return p.ROI2X }, 1920},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, s.Set(tt.key, tt.value))
			assert.Equal(t, tt.want, tt.get(s.Params()))
		})
	}
}

func TestSettingsSetErrors(t *testing.T) {
	s := engine.NewSettings(engine.DefaultParams())

	assert.Error(t, s.Set("zoom", 2))
	assert.Error(t, s.Set(engine.KeyLatency, "soon"))
	assert.Error(t, s.Set(engine.KeyWork, "maybe"))
}

func TestSettingsBoolsAndTriggers(t *testing.T) {
	s := engine.NewSettings(engine.DefaultParams())

	require.NoError(t, s.Set("WORK", "false"))
	assert.False(t, s.Params().Work)
	require.NoError(t, s.Set(engine.KeyAutoDetectPlans, 0))
	assert.False(t, s.Params().AutoDetectPlans)
	require.NoError(t, s.Set(engine.KeyAutoStart, true))
	assert.True(t, s.Params().AutoStart)

	for _, key := range []string{engine.KeyReset, engine.KeyNext, engine.KeyCalibrate} {
		assert.NoError(t, s.Set(key, true), key)
		assert.NoError(t, s.Set(key, "false"), key)
	}
}

func TestSettingsSetPlans(t *testing.T) {
	s := engine.NewSettings(engine.DefaultParams())

	res := s.SetPlans("0;200;400;")
	assert.Equal(t, 3, res.Parsed)
	assert.True(t, res.Complete)
	assert.Equal(t, "0;200;400;", s.Plans())

	res = s.SetPlans("10;oops;")
	assert.Equal(t, 1, res.Parsed)
	assert.False(t, res.Complete)
	assert.Equal(t, "10;200;400;", s.Plans())

	res = s.SetPlans("garbage")
	assert.Equal(t, 0, res.Parsed)
	assert.Equal(t, "10;200;400;", s.Plans())

	require.NoError(t, s.Set(engine.KeyPlans, "5;6;7;"))
	assert.Equal(t, "5;6;7;", s.Plans())
}

func TestSettingsUpdateRoutesPlansThroughParser(t *testing.T) {
	s := engine.NewSettings(engine.DefaultParams())
	s.Update(func(p *engine.Params) {
		p.NumberOfPlans = 2
		p.Plans = "1;2;3;"
	})

	assert.Equal(t, 2, s.Params().NumberOfPlans)
	assert.Equal(t, "1;2;", s.Plans())
}

func TestSettingsROI(t *testing.T) {
	s := engine.NewSettings(engine.DefaultParams())
	s.SetROI(300, 200, 100, 50)

	r := s.Params().Region()
	assert.Equal(t, 100, r.X)
	assert.Equal(t, 50, r.Y)
	assert.Equal(t, 200, r.Width)
	assert.Equal(t, 150, r.Height)
}

func TestNewSettingsNormalizes(t *testing.T) {
	p := engine.DefaultParams()
	p.Latency = 0
	p.Geometry.Steps = 500
	p.Calibration = engine.CalibrationParams{}

	got := engine.NewSettings(p).Params()
	assert.Equal(t, 1, got.Latency)
	assert.Equal(t, engine.DefaultParams().Geometry, got.Geometry)
	assert.Equal(t, engine.DefaultCalibration(), got.Calibration)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "steady", engine.State{Kind: engine.Steady}.String())
	assert.Equal(t, "scanning-manual[2]", engine.State{Kind: engine.ScanningManual, PlanIndex: 2}.String())
	assert.Equal(t, "scanning-manual[1] waiting",
		engine.State{Kind: engine.ScanningManual, PlanIndex: 1, Waiting: true}.String())
	assert.Equal(t, "kind(9)", engine.Kind(9).String())
	assert.True(t, engine.State{Kind: engine.ScanningAuto}.Scanning())
	assert.False(t, engine.State{Kind: engine.Calibrating}.Scanning())
}
