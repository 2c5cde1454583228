// Package cycle rotates the actuator through the known focus planes at a
// fixed frame interval.
package cycle

import "github.com/jamesainslie/multifocus/pkg/multifocus/plan"

// Scheduler issues one actuator command every space+1 frames.
type Scheduler struct {
	frameCounter int
	current      int
}

// Reset starts the rotation over from the first plan.
func (s *Scheduler) Reset() {
	s.frameCounter = 0
	s.current = 0
}

// Current returns the index of the plan that will be commanded next.
func (s *Scheduler) Current() int {
	return s.current
}

// Frames returns the number of frames seen since the last Reset.
func (s *Scheduler) Frames() int {
	return s.frameCounter
}

// Tick is called once per frame. When the frame counter is a multiple of
// space+1 it returns the next plan position and advances through the list,
// wrapping at the end. The frame counter advances on every call.
func (s *Scheduler) Tick(plans *plan.List, space int) (position int, ok bool) {
	if space < 0 {
		space = 0
	}
	defer func() { s.frameCounter++ }()

	n := plans.Len()
	if n == 0 {
		return 0, false
	}
	if s.current >= n {
		s.current = 0
	}
	if s.frameCounter%(space+1) != 0 {
		return 0, false
	}

	position = plans.At(s.current)
	s.current = (s.current + 1) % n
	return position, true
}
