// Package sharpness scores how well focused a region of a frame is.
// Larger scores mean sharper images; only the ordering of scores matters.
package sharpness

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
)

// Scorer measures the sharpness of the region r of frame f.
type Scorer interface {
	Score(f frames.Frame, r roi.Region) int64
}

// Func adapts a function to the Scorer interface.
type Func func(f frames.Frame, r roi.Region) int64

func (fn Func) Score(f frames.Frame, r roi.Region) int64 { return fn(f, r) }

// Metric names accepted by New.
const (
	MetricLaplacian = "laplacian"
	MetricSobel     = "sobel"
)

// New returns the scorer for a metric name.
func New(metric string) (Scorer, error) {
	switch metric {
	case "", MetricLaplacian:
		return Laplacian{}, nil
	case MetricSobel:
		return Sobel{}, nil
	default:
		return nil, fmt.Errorf("unknown sharpness metric %q", metric)
	}
}

// Laplacian scores a region by the variance of its 3x3 Laplacian response.
type Laplacian struct{}

func (Laplacian) Score(f frames.Frame, r roi.Region) int64 {
	g := luma(f.Image, r)
	if g == nil {
		return 0
	}
	resp := make([]float64, 0, (g.w-2)*(g.h-2))
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			v := g.at(x-1, y) + g.at(x+1, y) + g.at(x, y-1) + g.at(x, y+1) - 4*g.at(x, y)
			resp = append(resp, v)
		}
	}
	return int64(math.Round(stat.Variance(resp, nil)))
}

// Sobel scores a region by its mean squared gradient magnitude (Tenengrad).
type Sobel struct{}

func (Sobel) Score(f frames.Frame, r roi.Region) int64 {
	g := luma(f.Image, r)
	if g == nil {
		return 0
	}
	mag := make([]float64, 0, (g.w-2)*(g.h-2))
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			gx := g.at(x+1, y-1) + 2*g.at(x+1, y) + g.at(x+1, y+1) -
				g.at(x-1, y-1) - 2*g.at(x-1, y) - g.at(x-1, y+1)
			gy := g.at(x-1, y+1) + 2*g.at(x, y+1) + g.at(x+1, y+1) -
				g.at(x-1, y-1) - 2*g.at(x, y-1) - g.at(x+1, y-1)
			mag = append(mag, gx*gx+gy*gy)
		}
	}
	return int64(math.Round(floats.Sum(mag) / float64(len(mag))))
}

// plane is a copy of the region luma as floats.
type plane struct {
	w, h int
	pix  []float64
}

func (p *plane) at(x, y int) float64 { return p.pix[y*p.w+x] }

// luma extracts the region from img. It returns nil when the region,
// intersected with the image, is smaller than 3x3.
func luma(img image.Image, r roi.Region) *plane {
	if img == nil || r.Empty() {
		return nil
	}
	b := img.Bounds()
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(b.Min).Intersect(b)
	if rect.Dx() < 3 || rect.Dy() < 3 {
		return nil
	}

	p := &plane{w: rect.Dx(), h: rect.Dy(), pix: make([]float64, rect.Dx()*rect.Dy())}
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < p.h; y++ {
			off := gray.PixOffset(rect.Min.X, rect.Min.Y+y)
			for x := 0; x < p.w; x++ {
				p.pix[y*p.w+x] = float64(gray.Pix[off+x])
			}
		}
		return p
	}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			c := color.GrayModel.Convert(img.At(rect.Min.X+x, rect.Min.Y+y)).(color.Gray)
			p.pix[y*p.w+x] = float64(c.Y)
		}
	}
	return p
}
