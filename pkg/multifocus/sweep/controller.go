package sweep

import "fmt"

// Default sweep geometry.
const (
	DefaultSteps    = 80
	DefaultStepSize = 10
	DefaultPreRoll  = 9
)

// Geometry describes the positions visited by a sweep. Step s commands
// position (s - PreRoll) * StepSize; the pre-roll absorbs the latency window.
// Behaviour when the latency is not smaller than Steps is undefined: the
// buffer is simply left under-filled.
type Geometry struct {
	Steps    int `json:"steps" yaml:"steps"`
	StepSize int `json:"step_size" yaml:"step_size"`
	PreRoll  int `json:"pre_roll" yaml:"pre_roll"`
}

// DefaultGeometry returns the 80 step, 10 unit sweep with a 9 step pre-roll.
func DefaultGeometry() Geometry {
	return Geometry{
		Steps:    DefaultSteps,
		StepSize: DefaultStepSize,
		PreRoll:  DefaultPreRoll,
	}
}

// Validate checks that the geometry fits the sample buffer.
func (g Geometry) Validate() error {
	if g.Steps < 1 || g.Steps > BufferCapacity {
		return fmt.Errorf("sweep steps must be between 1 and %d, got %d", BufferCapacity, g.Steps)
	}
	if g.StepSize < 1 {
		return fmt.Errorf("sweep step size must be positive, got %d", g.StepSize)
	}
	if g.PreRoll < 0 || g.PreRoll >= g.Steps {
		return fmt.Errorf("sweep pre-roll must be between 0 and %d, got %d", g.Steps-1, g.PreRoll)
	}
	return nil
}

// PositionOf maps a step or sample index to the actuator position it stands for.
func (g Geometry) PositionOf(index int) int {
	return (index - g.PreRoll) * g.StepSize
}

// Command is an actuator position to send this frame.
type Command struct {
	Position int
}

// Controller runs one sweep. It is not safe for concurrent use; the engine
// drives it from the frame callback.
type Controller struct {
	geom   Geometry
	step   int
	buffer Buffer
}

// NewController returns a controller positioned before the first step.
func NewController(geom Geometry) *Controller {
	return &Controller{geom: geom}
}

// Restart discards any in-flight sweep.
func (c *Controller) Restart() {
	c.step = 0
	c.buffer.Reset()
}

// Step returns the number of commands issued so far.
func (c *Controller) Step() int {
	return c.step
}

// Buffer returns the samples collected so far.
func (c *Controller) Buffer() *Buffer {
	return &c.buffer
}

// Geometry returns the geometry the controller sweeps.
func (c *Controller) Geometry() Geometry {
	return c.geom
}

// Advance performs one frame of the sweep.
//
// The frame seen at step s reflects the command issued latency steps earlier,
// so once s exceeds the latency its score is stored at index s-latency. While
// steps remain, the next position is returned as a command. done reports
// that the last step has been commanded.
func (c *Controller) Advance(latency int, score func() int64) (cmd *Command, done bool) {
	if c.step >= c.geom.Steps {
		return nil, true
	}

	if c.step > latency {
		if idx := c.step - latency; idx < BufferCapacity {
			_ = c.buffer.Set(idx, score())
		}
	}

	cmd = &Command{Position: c.geom.PositionOf(c.step)}
	c.step++

	return cmd, c.step >= c.geom.Steps
}
