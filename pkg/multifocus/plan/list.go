// Package plan holds the chosen focus positions: selection from sweep peaks,
// and the text form used to persist them across sessions.
package plan

import "fmt"

// MaxPlans is the largest number of focus planes the engine can hold.
const MaxPlans = 50

// List is an ordered, fixed-capacity list of actuator positions.
type List struct {
	positions [MaxPlans]int
	length    int
}

// NewList builds a list from positions. Positions past MaxPlans are dropped.
func NewList(positions ...int) List {
	var l List
	for _, p := range positions {
		if err := l.Append(p); err != nil {
			break
		}
	}
	return l
}

// Len returns the number of positions in the list.
func (l *List) Len() int {
	return l.length
}

// At returns the position at index i.
func (l *List) At(i int) int {
	if i < 0 || i >= l.length {
		return 0
	}
	return l.positions[i]
}

// Append adds a position to the end of the list.
func (l *List) Append(position int) error {
	if l.length >= MaxPlans {
		return fmt.Errorf("plan list full (%d positions)", MaxPlans)
	}
	l.positions[l.length] = position
	l.length++
	return nil
}

// SetAt stores a position in slot i, growing the list to cover it. Slots
// skipped over keep their previous values.
func (l *List) SetAt(i, position int) error {
	if i < 0 || i >= MaxPlans {
		return fmt.Errorf("plan slot %d out of range [0,%d)", i, MaxPlans)
	}
	l.positions[i] = position
	if i+1 > l.length {
		l.length = i + 1
	}
	return nil
}

// Truncate shortens the list to n positions. Slot values are kept so that a
// later SetAt or partial parse can reuse them.
func (l *List) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < l.length {
		l.length = n
	}
}

// Positions returns a copy of the positions.
func (l *List) Positions() []int {
	out := make([]int, l.length)
	copy(out, l.positions[:l.length])
	return out
}
