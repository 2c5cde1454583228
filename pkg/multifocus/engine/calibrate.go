package engine

// calibration measures the actuator latency: rest at position 0, jump to
// a distant position, and count frames until the sharpness visibly moves.
type calibration struct {
	params CalibrationParams
	frame  int
	prev   int64
	resume State
}

func newCalibration(p CalibrationParams, resume State) *calibration {
	return &calibration{params: p, resume: resume}
}

// step runs one frame. It returns the position to command, if any, and a
// result once the measurement finished or timed out.
func (c *calibration) step(score func() int64) (cmd *int, res *CalibrationResult) {
	f := c.frame
	c.frame++

	switch {
	case f == 0:
		zero := 0
		cmd = &zero
	case f == c.params.SettleFrames:
		jump := c.params.JumpPosition
		cmd = &jump
		c.prev = score()
	case f > c.params.SettleFrames:
		cur := score()
		if relativeChange(c.prev, cur) >= c.params.Threshold {
			return nil, &CalibrationResult{Latency: f - c.params.SettleFrames, Frames: c.frame}
		}
		c.prev = cur
	}

	if c.frame >= c.params.Timeout {
		return cmd, &CalibrationResult{Frames: c.frame, Aborted: true}
	}
	return cmd, nil
}

func relativeChange(prev, cur int64) float64 {
	d := prev - cur
	if d < 0 {
		d = -d
	}
	base := cur
	if base < 0 {
		base = -base
	}
	if base == 0 {
		base = 1
	}
	return float64(d) / float64(base)
}
