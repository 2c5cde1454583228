package actuator

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl request from linux/i2c-dev.h.
const i2cSlave = 0x0703

// I2CBus drives a focus DAC on an i2c character device. Each position is
// written as a 16-bit big-endian value.
type I2CBus struct {
	mu   sync.Mutex
	file *os.File
}

// OpenI2C opens device (for example /dev/i2c-1) and selects addr.
func OpenI2C(device string, addr int) (*I2CBus, error) {
	if device == "" {
		return nil, errors.New("i2c device path is empty")
	}
	if addr <= 0 || addr > 0x7f {
		return nil, fmt.Errorf("invalid i2c address %#x", addr)
	}
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", device, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, addr); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("selecting i2c address %#x: %w", addr, err)
	}
	return &I2CBus{file: f}, nil
}

func (b *I2CBus) SetPosition(position int) error {
	return b.write(encodeDAC(position))
}

// Disable writes the DAC power-down word.
func (b *I2CBus) Disable() error {
	return b.write([2]byte{0x80, 0x00})
}

func (b *I2CBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

func (b *I2CBus) write(word [2]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return ErrClosed
	}
	if _, err := b.file.Write(word[:]); err != nil {
		return fmt.Errorf("writing i2c word: %w", err)
	}
	return nil
}
