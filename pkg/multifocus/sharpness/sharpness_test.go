package sharpness_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sharpness"
)

// checker returns a frame with a checkerboard of the given cell size.
// Smaller cells carry more high-frequency energy.
func checker(size, cell int) frames.Frame {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return frames.Frame{Width: size, Height: size, Image: img}
}

func flat(size int) frames.Frame {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return frames.Frame{Width: size, Height: size, Image: img}
}

func TestScorersOrderBySharpness(t *testing.T) {
	region := roi.Region{X: 0, Y: 0, Width: 32, Height: 32}

	for _, metric := range []string{sharpness.MetricLaplacian, sharpness.MetricSobel} {
		t.Run(metric, func(t *testing.T) {
			s, err := sharpness.New(metric)
			require.NoError(t, err)

			fine := s.Score(checker(32, 2), region)
			coarse := s.Score(checker(32, 8), region)
			blank := s.Score(flat(32), region)

			assert.Greater(t, fine, coarse)
			assert.Greater(t, coarse, blank)
			assert.Equal(t, int64(0), blank)
		})
	}
}

func TestScoreDegenerateInputs(t *testing.T) {
	s := sharpness.Laplacian{}
	f := checker(16, 2)

	tests := []struct {
		name   string
		frame  frames.Frame
		region roi.Region
	}{
		{"nil image", frames.Frame{Width: 16, Height: 16}, roi.Region{Width: 8, Height: 8}},
		{"empty region", f, roi.Region{X: 2, Y: 2}},
		{"too small", f, roi.Region{Width: 2, Height: 8}},
		{"outside frame", f, roi.Region{X: 40, Y: 40, Width: 8, Height: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, int64(0), s.Score(tt.frame, tt.region))
		})
	}
}

func TestScoreRegionOnlySeesItsPixels(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 16))
	for y := range 16 {
		for x := 16; x < 32; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	f := frames.Frame{Width: 32, Height: 16, Image: img}
	s := sharpness.Laplacian{}

	assert.Equal(t, int64(0), s.Score(f, roi.Region{Width: 16, Height: 16}))
	assert.Positive(t, s.Score(f, roi.Region{X: 16, Width: 16, Height: 16}))
}

func TestNewUnknownMetric(t *testing.T) {
	_, err := sharpness.New("fft")
	assert.Error(t, err)
}

func TestFuncAdapter(t *testing.T) {
	s := sharpness.Func(func(frames.Frame, roi.Region) int64 { return 7 })
	assert.Equal(t, int64(7), s.Score(frames.Frame{}, roi.Region{}))
}
