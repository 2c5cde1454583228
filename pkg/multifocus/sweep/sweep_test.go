package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_SetAndAt(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Set(3, 42))
	assert.Equal(t, int64(42), b.At(3))
	assert.Equal(t, int64(0), b.At(2), "unwritten slots read as zero")
	assert.Equal(t, 4, b.Len())

	assert.Error(t, b.Set(-1, 1))
	assert.Error(t, b.Set(BufferCapacity, 1))
	assert.Equal(t, int64(0), b.At(BufferCapacity))
}

func TestBuffer_Reset(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Set(10, 7))
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), b.At(10))
	assert.Len(t, b.Samples(), BufferCapacity)
}

func TestGeometry_Validate(t *testing.T) {
	assert.NoError(t, DefaultGeometry().Validate())
	assert.Error(t, Geometry{Steps: 101, StepSize: 10}.Validate())
	assert.Error(t, Geometry{Steps: 80, StepSize: 0}.Validate())
	assert.Error(t, Geometry{Steps: 80, StepSize: 10, PreRoll: 80}.Validate())
}

func TestGeometry_PositionOf(t *testing.T) {
	g := DefaultGeometry()
	assert.Equal(t, -90, g.PositionOf(0))
	assert.Equal(t, 0, g.PositionOf(9))
	assert.Equal(t, 310, g.PositionOf(40))
	assert.Equal(t, 700, g.PositionOf(79))
}

func TestController_CommandsEveryStep(t *testing.T) {
	c := NewController(DefaultGeometry())

	var positions []int
	done := false
	frames := 0
	for !done {
		var cmd *Command
		cmd, done = c.Advance(3, func() int64 { return 1 })
		require.NotNil(t, cmd)
		positions = append(positions, cmd.Position)
		frames++
		require.LessOrEqual(t, frames, DefaultSteps)
	}

	require.Len(t, positions, DefaultSteps)
	assert.Equal(t, -90, positions[0])
	assert.Equal(t, 700, positions[DefaultSteps-1])
	for i := 1; i < len(positions); i++ {
		assert.Equal(t, DefaultStepSize, positions[i]-positions[i-1])
	}

	cmd, done := c.Advance(3, func() int64 { return 1 })
	assert.Nil(t, cmd)
	assert.True(t, done)
}

func TestController_LatencyOffset(t *testing.T) {
	const latency = 3
	c := NewController(DefaultGeometry())

	// Score each frame with the step it was observed at.
	for {
		step := c.Step()
		_, done := c.Advance(latency, func() int64 { return int64(step) })
		if done {
			break
		}
	}

	b := c.Buffer()
	assert.Equal(t, int64(0), b.At(0), "index 0 is never sampled")
	for idx := 1; idx < DefaultSteps-latency; idx++ {
		assert.Equal(t, int64(idx+latency), b.At(idx), "index %d", idx)
	}
	assert.Equal(t, DefaultSteps-latency, b.Len())
	// completion is reported with the last command, before its frame is seen
	assert.Equal(t, int64(0), b.At(DefaultSteps-latency), "last commanded step is not sampled")
}

func TestController_LatencyBeyondSweep(t *testing.T) {
	c := NewController(DefaultGeometry())
	calls := 0
	for {
		_, done := c.Advance(DefaultSteps+5, func() int64 { calls++; return 9 })
		if done {
			break
		}
	}
	assert.Zero(t, calls)
	assert.Zero(t, c.Buffer().Len())
}

func TestController_Restart(t *testing.T) {
	c := NewController(DefaultGeometry())
	for i := 0; i < 10; i++ {
		c.Advance(1, func() int64 { return 5 })
	}
	c.Restart()
	assert.Zero(t, c.Step())
	assert.Zero(t, c.Buffer().Len())
}
