//go:build !linux

package actuator

import "errors"

// I2CBus is only available on Linux.
type I2CBus struct{ Nop }

// OpenI2C always fails outside Linux.
func OpenI2C(string, int) (*I2CBus, error) {
	return nil, errors.New("i2c actuator requires linux")
}
