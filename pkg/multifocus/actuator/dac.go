package actuator

// encodeDAC packs a position into the 15-bit data word of the focus DAC.
// The top bit is the power-down flag and is always clear here.
func encodeDAC(position int) [2]byte {
	v := uint16(clamp(position, 0, 0x7fff))
	return [2]byte{byte(v >> 8), byte(v)}
}
