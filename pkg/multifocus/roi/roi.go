// Package roi describes the rectangular region of a frame used to measure
// sharpness, and keeps it inside the frame.
package roi

import "fmt"

// Region is a rectangle in pixel coordinates.
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// FromCorners builds a region from two opposite corners. The corners may be
// given in any order.
func FromCorners(x1, y1, x2, y2 int) Region {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the number of pixels covered by the region.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Clamp shrinks the region so it fits a frame of the given size.
//
// Only Width and Height are adjusted; X and Y are kept as requested. A region
// whose origin already lies outside the frame comes back with a zero
// dimension rather than a negative one.
func Clamp(r Region, frameWidth, frameHeight int) Region {
	if r.Height > frameHeight || r.Y+r.Height > frameHeight {
		r.Height = frameHeight - r.Y
	}
	if r.Width > frameWidth || r.X+r.Width > frameWidth {
		r.Width = frameWidth - r.X
	}
	if r.Height < 0 {
		r.Height = 0
	}
	if r.Width < 0 {
		r.Width = 0
	}
	return r
}
