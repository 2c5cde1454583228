package simulate_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
	"github.com/jamesainslie/multifocus/pkg/multifocus/simulate"
)

func TestLensLatency(t *testing.T) {
	lens := simulate.NewLens(3)
	lens.Tick()
	require.NoError(t, lens.SetPosition(200))

	for range 2 {
		lens.Tick()
		assert.Equal(t, 0, lens.Position())
	}
	lens.Tick()
	assert.Equal(t, 200, lens.Position())
}

func TestLensZeroLatency(t *testing.T) {
	lens := simulate.NewLens(0)
	require.NoError(t, lens.SetPosition(42))
	assert.Equal(t, 42, lens.Position())
	assert.Equal(t, []int{42}, lens.Commands())
}

func TestLensSharpnessCurve(t *testing.T) {
	lens := simulate.NewLens(0, simulate.Plane{Position: 310, Peak: 1000, Width: 40})

	peak := lens.SharpnessAt(310)
	assert.Equal(t, int64(1010), peak)
	assert.Less(t, lens.SharpnessAt(300), peak)
	assert.Equal(t, lens.SharpnessAt(300), lens.SharpnessAt(320))
	assert.Equal(t, int64(10), lens.SharpnessAt(-90))
}

func TestLensScoreUsesEffectivePosition(t *testing.T) {
	lens := simulate.NewLens(1, simulate.Plane{Position: 100, Peak: 500, Width: 10})
	f := frames.Frame{Width: 100, Height: 100}
	full := roi.Region{Width: 100, Height: 100}

	require.NoError(t, lens.SetPosition(100))
	assert.Equal(t, int64(10), lens.Score(f, full))
	lens.Tick()
	assert.Equal(t, int64(510), lens.Score(f, full))

	half := roi.Region{Width: 50, Height: 100}
	assert.Equal(t, int64(255), lens.Score(f, half))
	assert.Equal(t, int64(0), lens.Score(f, roi.Region{}))
}

func TestLensClose(t *testing.T) {
	lens := simulate.NewLens(0)
	require.NoError(t, lens.Disable())
	require.NoError(t, lens.Close())
	assert.Error(t, lens.SetPosition(1))
}

func TestCamera(t *testing.T) {
	lens := simulate.NewLens(1)
	cam := simulate.NewCamera(lens, simulate.CameraOptions{Frames: 3})
	defer cam.Close()

	require.NoError(t, lens.SetPosition(50))
	ctx := context.Background()
	for i := range 3 {
		f, err := cam.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), f.Index)
		assert.Equal(t, 640, f.Width)
		assert.Equal(t, 480, f.Height)
	}
	assert.Equal(t, 50, lens.Position())

	_, err := cam.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
