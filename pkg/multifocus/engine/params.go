package engine

import (
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sweep"
)

// Parameter ranges. Values outside a range are clamped when set.
const (
	MinPlans      = 1
	MinFrameParam = 1
	MaxFrameParam = 120
)

// Params is the tunable part of the engine. Reset, next and calibrate are
// not here: they are one-shot triggers latched by Settings.
type Params struct {
	// Work is the master enable. While false frames pass untouched.
	Work bool `json:"work"`
	// AutoStart begins a scan WaitAfterStart frames after start-up.
	AutoStart bool `json:"auto_start"`
	// AutoDetectPlans finds every plan in one sweep; otherwise each plan
	// is confirmed by the operator with the next trigger.
	AutoDetectPlans bool `json:"auto_detect_plans"`

	NumberOfPlans      int `json:"number_of_plans"`
	Latency            int `json:"latency"`
	WaitAfterStart     int `json:"wait_after_start"`
	SpaceBetweenSwitch int `json:"space_between_switch"`

	// Two opposite corners of the sharpness region.
	ROI1X int `json:"roi1x"`
	ROI1Y int `json:"roi1y"`
	ROI2X int `json:"roi2x"`
	ROI2Y int `json:"roi2y"`

	// Plans is the codec text of the current plan list.
	Plans string `json:"plans"`

	Geometry    sweep.Geometry    `json:"geometry"`
	Calibration CalibrationParams `json:"calibration"`
}

// CalibrationParams drives the latency measurement.
type CalibrationParams struct {
	// SettleFrames is how long the actuator rests at position 0.
	SettleFrames int `json:"settle_frames"`
	// JumpPosition is commanded after settling.
	JumpPosition int `json:"jump_position"`
	// Threshold is the relative change between consecutive scores that
	// marks the jump as visible, e.g. 0.25.
	Threshold float64 `json:"threshold"`
	// Timeout aborts calibration after this many frames.
	Timeout int `json:"timeout"`
}

// DefaultCalibration rests 5 frames at 0, jumps to 500 and waits for a
// 25% change, giving up after 60 frames.
func DefaultCalibration() CalibrationParams {
	return CalibrationParams{
		SettleFrames: 5,
		JumpPosition: 500,
		Threshold:    0.25,
		Timeout:      60,
	}
}

// DefaultParams returns the values used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Work:               true,
		AutoStart:          false,
		AutoDetectPlans:    true,
		NumberOfPlans:      3,
		Latency:            3,
		WaitAfterStart:     10,
		SpaceBetweenSwitch: 10,
		ROI1X:              0,
		ROI1Y:              0,
		ROI2X:              640,
		ROI2Y:              480,
		Geometry:           sweep.DefaultGeometry(),
		Calibration:        DefaultCalibration(),
	}
}

// Region returns the configured sharpness region before clamping.
func (p Params) Region() roi.Region {
	return roi.FromCorners(p.ROI1X, p.ROI1Y, p.ROI2X, p.ROI2Y)
}

// normalize clamps every ranged value.
func (p Params) normalize() Params {
	p.NumberOfPlans = clampInt(p.NumberOfPlans, MinPlans, maxPlans)
	p.Latency = clampInt(p.Latency, MinFrameParam, MaxFrameParam)
	p.WaitAfterStart = clampInt(p.WaitAfterStart, MinFrameParam, MaxFrameParam)
	p.SpaceBetweenSwitch = clampInt(p.SpaceBetweenSwitch, MinFrameParam, MaxFrameParam)
	if p.Geometry.Validate() != nil {
		p.Geometry = sweep.DefaultGeometry()
	}
	c := &p.Calibration
	d := DefaultCalibration()
	if c.SettleFrames < 1 {
		c.SettleFrames = d.SettleFrames
	}
	if c.JumpPosition <= 0 {
		c.JumpPosition = d.JumpPosition
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.Timeout <= c.SettleFrames {
		c.Timeout = max(d.Timeout, c.SettleFrames+1)
	}
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
