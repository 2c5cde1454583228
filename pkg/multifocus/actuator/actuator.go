// Package actuator moves the focus element. Drivers speak to the hardware;
// the engine only sees the Bus interface.
package actuator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// Bus accepts focus positions.
type Bus interface {
	// SetPosition commands an absolute position.
	SetPosition(position int) error
	// Disable releases the actuator so it stops holding a position.
	Disable() error
	Close() error
}

// Driver names.
const (
	DriverNone   = "none"
	DriverSerial = "serial"
	DriverI2C    = "i2c"
)

// Default position range of the focus DAC.
const (
	DefaultMinPosition = 0
	DefaultMaxPosition = 1023
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown actuator driver")
	// ErrClosed is returned by a bus after Close.
	ErrClosed = errors.New("actuator closed")
)

// Config selects and configures a driver.
type Config struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Device is the serial port or i2c character device path.
	Device string `mapstructure:"device" yaml:"device"`
	// Address is the i2c slave address.
	Address int `mapstructure:"address" yaml:"address"`
	// MinPosition and MaxPosition bound every command. Sweep pre-roll
	// positions below the minimum are sent as the minimum.
	MinPosition int         `mapstructure:"min_position" yaml:"min_position"`
	MaxPosition int         `mapstructure:"max_position" yaml:"max_position"`
	Serial      PortOptions `mapstructure:"serial" yaml:"serial"`
}

// Open returns a bus for cfg.Driver with position limits applied.
func Open(cfg Config) (Bus, error) {
	var (
		bus Bus
		err error
	)
	switch cfg.Driver {
	case "", DriverNone:
		bus = &Nop{}
	case DriverSerial:
		bus, err = OpenSerial(cfg.Device, cfg.Serial)
	case DriverI2C:
		bus, err = OpenI2C(cfg.Device, cfg.Address)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s actuator: %w", cfg.Driver, err)
	}

	lo, hi := cfg.MinPosition, cfg.MaxPosition
	if hi <= lo {
		lo, hi = DefaultMinPosition, DefaultMaxPosition
	}
	return Limit(bus, lo, hi), nil
}

// Limit wraps bus so positions outside [lo, hi] are clamped.
func Limit(bus Bus, lo, hi int) Bus {
	return &limited{Bus: bus, lo: lo, hi: hi}
}

type limited struct {
	Bus
	lo, hi int
}

func (l *limited) SetPosition(position int) error {
	return l.Bus.SetPosition(clamp(position, l.lo, l.hi))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Nop accepts every command and logs it at debug level.
type Nop struct{}

func (Nop) SetPosition(position int) error {
	logging.Get("actuator").Debug("position", "value", position)
	return nil
}

func (Nop) Disable() error { return nil }
func (Nop) Close() error   { return nil }

// Recorder is an in-memory bus that keeps every command. It is used by the
// dry-run mode and by tests.
type Recorder struct {
	mu        sync.Mutex
	positions []int
	disabled  bool
	closed    bool
	// Err, when set, is returned by SetPosition after recording.
	Err error
}

func (r *Recorder) SetPosition(position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.positions = append(r.positions, position)
	return r.Err
}

func (r *Recorder) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = true
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Positions returns a copy of the commands received so far.
func (r *Recorder) Positions() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.positions...)
}

// Last returns the most recent command.
func (r *Recorder) Last() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.positions) == 0 {
		return 0, false
	}
	return r.positions[len(r.positions)-1], true
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = nil
}

// Disabled reports whether Disable was called.
func (r *Recorder) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
