package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/plan"
)

const maxPlans = plan.MaxPlans

// Parameter names accepted by Settings.Set.
const (
	KeyWork               = "work"
	KeyReset              = "reset"
	KeyNext               = "next"
	KeyCalibrate          = "calibrate"
	KeyAutoStart          = "auto_start"
	KeyAutoDetectPlans    = "auto_detect_plans"
	KeyNumberOfPlans      = "number_of_plans"
	KeyLatency            = "latency"
	KeyWaitAfterStart     = "wait_after_start"
	KeySpaceBetweenSwitch = "space_between_switch"
	KeyROI1X              = "roi1x"
	KeyROI1Y              = "roi1y"
	KeyROI2X              = "roi2x"
	KeyROI2Y              = "roi2y"
	KeyPlans              = "plans"
)

// Keys lists every name Set understands.
var Keys = []string{
	KeyWork, KeyReset, KeyNext, KeyCalibrate, KeyAutoStart, KeyAutoDetectPlans,
	KeyNumberOfPlans, KeyLatency, KeyWaitAfterStart, KeySpaceBetweenSwitch,
	KeyROI1X, KeyROI1Y, KeyROI2X, KeyROI2Y, KeyPlans,
}

// Settings is the thread-safe parameter store shared between the frame
// goroutine and control surfaces. The engine reads it once per frame.
type Settings struct {
	mu sync.Mutex
	p  Params

	reset     bool
	next      bool
	calibrate bool

	// current mirrors the plan list in p.Plans. pending is set when an
	// external write should be adopted by the engine.
	current plan.List
	pending *plan.List

	// busy is set by the engine while a scan or calibration owns the plans.
	busy bool
}

// NewSettings returns settings holding p, with ranges clamped and p.Plans
// parsed.
func NewSettings(p Params) *Settings {
	s := &Settings{p: p.normalize()}
	if p.Plans != "" {
		s.SetPlans(p.Plans)
	}
	return s
}

// Params returns a copy of the current parameters.
func (s *Settings) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// Update applies fn to the parameters and clamps the result. Changes to
// the plans text go through SetPlans.
func (s *Settings) Update(fn func(*Params)) {
	s.mu.Lock()
	next := s.p
	fn(&next)
	text := next.Plans
	next.Plans = s.p.Plans
	s.p = next.normalize()
	s.mu.Unlock()

	if text != next.Plans {
		s.SetPlans(text)
	}
}

func (s *Settings) SetWork(on bool) { s.Update(func(p *Params) { p.Work = on }) }

func (s *Settings) SetAutoDetectPlans(on bool) {
	s.Update(func(p *Params) { p.AutoDetectPlans = on })
}

func (s *Settings) SetNumberOfPlans(n int) { s.Update(func(p *Params) { p.NumberOfPlans = n }) }
func (s *Settings) SetLatency(n int)       { s.Update(func(p *Params) { p.Latency = n }) }

func (s *Settings) SetSpaceBetweenSwitch(n int) {
	s.Update(func(p *Params) { p.SpaceBetweenSwitch = n })
}

// SetROI sets the two corners of the sharpness region.
func (s *Settings) SetROI(x1, y1, x2, y2 int) {
	s.Update(func(p *Params) {
		p.ROI1X, p.ROI1Y, p.ROI2X, p.ROI2Y = x1, y1, x2, y2
	})
}

// Reset requests a new scan on the next frame.
func (s *Settings) Reset() { s.latch(&s.reset) }

// Next confirms the current manual plan.
func (s *Settings) Next() { s.latch(&s.next) }

// Calibrate requests a latency measurement.
func (s *Settings) Calibrate() { s.latch(&s.calibrate) }

func (s *Settings) latch(flag *bool) {
	s.mu.Lock()
	*flag = true
	s.mu.Unlock()
}

// Plans returns the codec text of the current plan list.
func (s *Settings) Plans() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Plans
}

// SetPlans parses text as NumberOfPlans codec tokens. Slots that fail to
// parse keep their previous position. When at least one slot parsed the
// engine adopts the list on its next frame. Text written while the engine
// is scanning or calibrating is ignored and reports nothing parsed.
func (s *Settings) SetPlans(text string) plan.ParseResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		logging.Get("engine").Warn("plans ignored while scanning", "text", text)
		return plan.ParseResult{}
	}

	list := s.current
	res := plan.Parse(text, s.p.NumberOfPlans, &list)
	if !res.Complete {
		logging.Get("engine").Warn("plans text partially parsed",
			"text", text, "parsed", res.Parsed, "want", s.p.NumberOfPlans)
	}
	if res.Parsed == 0 {
		return res
	}
	s.current = list
	s.p.Plans = plan.Format(list)
	adopted := list
	s.pending = &adopted
	return res
}

// Set assigns a parameter by name, converting value as needed. Boolean
// triggers fire when set to true.
func (s *Settings) Set(key string, value any) error {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case KeyReset, KeyNext, KeyCalibrate:
		on, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if on {
			switch key {
			case KeyReset:
				s.Reset()
			case KeyNext:
				s.Next()
			default:
				s.Calibrate()
			}
		}
		return nil
	case KeyWork, KeyAutoStart, KeyAutoDetectPlans:
		on, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.Update(func(p *Params) {
			switch key {
			case KeyWork:
				p.Work = on
			case KeyAutoStart:
				p.AutoStart = on
			default:
				p.AutoDetectPlans = on
			}
		})
		return nil
	case KeyPlans:
		text, err := cast.ToStringE(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.SetPlans(text)
		return nil
	}

	field := s.intField(key)
	if field == nil {
		return fmt.Errorf("unknown parameter %q", key)
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	s.Update(func(p *Params) { *field(p) = n })
	return nil
}

func (s *Settings) intField(key string) func(*Params) *int {
	switch key {
	case KeyNumberOfPlans:
		return func(p *Params) *int { return &p.NumberOfPlans }
	case KeyLatency:
		return func(p *Params) *int { return &p.Latency }
	case KeyWaitAfterStart:
		return func(p *Params) *int { return &p.WaitAfterStart }
	case KeySpaceBetweenSwitch:
		return func(p *Params) *int { return &p.SpaceBetweenSwitch }
	case KeyROI1X:
		return func(p *Params) *int { return &p.ROI1X }
	case KeyROI1Y:
		return func(p *Params) *int { return &p.ROI1Y }
	case KeyROI2X:
		return func(p *Params) *int { return &p.ROI2X }
	case KeyROI2Y:
		return func(p *Params) *int { return &p.ROI2Y }
	}
	return nil
}

// frameInput is what the engine consumes at the top of a frame.
type frameInput struct {
	Params
	reset     bool
	next      bool
	calibrate bool
	plans     *plan.List
}

// take returns the parameters and, when work is enabled, consumes the
// latched triggers and any externally written plan list.
func (s *Settings) take() frameInput {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := frameInput{Params: s.p}
	if !s.p.Work {
		return in
	}
	in.reset, in.next, in.calibrate, in.plans = s.reset, s.next, s.calibrate, s.pending
	s.reset, s.next, s.calibrate, s.pending = false, false, false, nil
	return in
}

func (s *Settings) setBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

// commitPlans records a list produced by a scan. A positive count becomes
// the new number of plans.
func (s *Settings) commitPlans(list plan.List, count int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count >= MinPlans {
		s.p.NumberOfPlans = clampInt(count, MinPlans, maxPlans)
	}
	s.current = list
	s.p.Plans = plan.Format(list)
	return s.p.Plans
}

// commitLatency stores a calibrated latency.
func (s *Settings) commitLatency(frames int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Latency = clampInt(frames, MinFrameParam, MaxFrameParam)
	return s.p.Latency
}
