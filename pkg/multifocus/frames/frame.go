// Package frames delivers images to the focus engine one at a time.
package frames

import (
	"context"
	"image"
	"time"
)

// Frame is one image from the sensor. Image may be nil for sources that
// only carry timing, such as the simulator.
type Frame struct {
	Index     uint64
	Width     int
	Height    int
	Image     image.Image
	Timestamp time.Time
}

// Bounds returns the frame rectangle.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Source produces frames in order. Next blocks until a frame is available
// and returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Pacer spaces frames at a fixed rate. A zero rate never waits.
type Pacer struct {
	interval time.Duration
	last     time.Time
}

// NewPacer returns a pacer for fps frames per second.
func NewPacer(fps float64) *Pacer {
	p := &Pacer{}
	if fps > 0 {
		p.interval = time.Duration(float64(time.Second) / fps)
	}
	return p
}

// Wait blocks until the next frame is due or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval == 0 {
		return ctx.Err()
	}
	if !p.last.IsZero() {
		if d := time.Until(p.last.Add(p.interval)); d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}
