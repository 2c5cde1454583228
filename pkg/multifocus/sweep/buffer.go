// Package sweep drives the actuator across its range one step per frame and
// records the sharpness observed at each step.
package sweep

import "fmt"

// BufferCapacity is the number of sharpness samples a sweep can hold.
const BufferCapacity = 100

// Buffer is a fixed-capacity store of one sharpness score per sweep step.
// Slots that were never written read as zero.
type Buffer struct {
	samples [BufferCapacity]int64
	length  int // one past the highest written index
}

// Set stores a score at index i.
func (b *Buffer) Set(i int, score int64) error {
	if i < 0 || i >= BufferCapacity {
		return fmt.Errorf("sample index %d out of range [0,%d)", i, BufferCapacity)
	}
	b.samples[i] = score
	if i+1 > b.length {
		b.length = i + 1
	}
	return nil
}

// At returns the score at index i, or zero when i is out of range.
func (b *Buffer) At(i int) int64 {
	if i < 0 || i >= BufferCapacity {
		return 0
	}
	return b.samples[i]
}

// Len returns one past the highest index written since the last Reset.
func (b *Buffer) Len() int {
	return b.length
}

// Samples returns a copy of the whole buffer, written or not.
func (b *Buffer) Samples() []int64 {
	out := make([]int64, BufferCapacity)
	copy(out, b.samples[:])
	return out
}

// Reset zeroes every slot.
func (b *Buffer) Reset() {
	b.samples = [BufferCapacity]int64{}
	b.length = 0
}
