// Package simulate provides a virtual focus lens and camera so the engine
// can run without hardware.
package simulate

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/jamesainslie/multifocus/pkg/multifocus/actuator"
	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/roi"
)

// Plane is an object at some distance: sharpness peaks when the lens sits
// at Position and falls off over roughly Width units.
type Plane struct {
	Position int     `mapstructure:"position" yaml:"position"`
	Peak     float64 `mapstructure:"peak" yaml:"peak"`
	Width    float64 `mapstructure:"width" yaml:"width"`
}

// DefaultPlanes are three objects spread over the sweep range.
func DefaultPlanes() []Plane {
	return []Plane{
		{Position: 100, Peak: 800, Width: 40},
		{Position: 310, Peak: 1000, Width: 40},
		{Position: 550, Peak: 600, Width: 40},
	}
}

type command struct {
	position int
	frame    uint64
}

// Lens is both the actuator and the sharpness sensor of a simulated camera.
// A command issued during frame k is visible from frame k+latency on.
type Lens struct {
	mu        sync.Mutex
	planes    []Plane
	latency   uint64
	baseline  float64
	frame     uint64
	pending   []command
	effective int
	commands  []int
	disabled  bool
	closed    bool
}

var _ actuator.Bus = (*Lens)(nil)

// NewLens returns a lens with the given latency in frames.
func NewLens(latency int, planes ...Plane) *Lens {
	if latency < 0 {
		latency = 0
	}
	if len(planes) == 0 {
		planes = DefaultPlanes()
	}
	return &Lens{planes: planes, latency: uint64(latency), baseline: 10}
}

// SetPlanes replaces the simulated scene.
func (l *Lens) SetPlanes(planes ...Plane) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.planes = append([]Plane(nil), planes...)
}

// Tick marks the arrival of a new frame.
func (l *Lens) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame++
	l.settle()
}

// settle applies commands whose latency has elapsed. Caller holds mu.
func (l *Lens) settle() {
	n := 0
	for _, c := range l.pending {
		if c.frame+l.latency > l.frame {
			break
		}
		l.effective = c.position
		n++
	}
	l.pending = l.pending[n:]
}

func (l *Lens) SetPosition(position int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return actuator.ErrClosed
	}
	l.commands = append(l.commands, position)
	l.pending = append(l.pending, command{position: position, frame: l.frame})
	l.settle()
	return nil
}

func (l *Lens) Disable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled = true
	return nil
}

func (l *Lens) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Position returns the position the optics currently show.
func (l *Lens) Position() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.effective
}

// Commands returns every position commanded so far.
func (l *Lens) Commands() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.commands...)
}

// SharpnessAt evaluates the focus curve at a lens position.
func (l *Lens) SharpnessAt(position int) int64 {
	l.mu.Lock()
	planes := l.planes
	l.mu.Unlock()

	v := l.baseline
	for _, p := range planes {
		w := p.Width
		if w <= 0 {
			w = 1
		}
		d := float64(position - p.Position)
		v += p.Peak * math.Exp(-d*d/(2*w*w))
	}
	return int64(math.Round(v))
}

// Score ignores the image and reports the sharpness at the effective
// position, scaled by the fraction of the frame the region covers.
func (l *Lens) Score(f frames.Frame, r roi.Region) int64 {
	if r.Empty() {
		return 0
	}
	s := l.SharpnessAt(l.Position())
	if area := f.Width * f.Height; area > 0 && r.Area() < area {
		s = s * int64(r.Area()) / int64(area)
	}
	return s
}

// Camera produces blank frames and ticks the lens once per frame.
type Camera struct {
	lens   *Lens
	width  int
	height int
	limit  uint64
	pacer  *frames.Pacer
	next   uint64
}

// CameraOptions sizes and paces a Camera. A zero Frames runs forever.
type CameraOptions struct {
	Width  int     `mapstructure:"width" yaml:"width"`
	Height int     `mapstructure:"height" yaml:"height"`
	FPS    float64 `mapstructure:"fps" yaml:"fps"`
	Frames uint64  `mapstructure:"frames" yaml:"frames"`
}

// NewCamera returns a frame source bound to lens.
func NewCamera(lens *Lens, opts CameraOptions) *Camera {
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}
	return &Camera{
		lens:   lens,
		width:  opts.Width,
		height: opts.Height,
		limit:  opts.Frames,
		pacer:  frames.NewPacer(opts.FPS),
	}
}

func (c *Camera) Next(ctx context.Context) (frames.Frame, error) {
	if c.limit > 0 && c.next >= c.limit {
		return frames.Frame{}, io.EOF
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return frames.Frame{}, err
	}
	c.lens.Tick()
	f := frames.Frame{
		Index:     c.next,
		Width:     c.width,
		Height:    c.height,
		Timestamp: time.Now(),
	}
	c.next++
	return f, nil
}

func (c *Camera) Close() error { return nil }
