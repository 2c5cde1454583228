package logging

import "sync"

// DefaultHistorySize is the number of records the console keeps.
const DefaultHistorySize = 200

// History is a fixed-size ring of recent records.
type History struct {
	mu    sync.RWMutex
	ring  []Record
	next  int
	count int
}

// NewHistory returns a ring holding up to size records.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{ring: make([]Record, size)}
}

// Add stores rec, evicting the oldest record when full.
func (h *History) Add(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = rec
	h.next = (h.next + 1) % len(h.ring)
	if h.count < len(h.ring) {
		h.count++
	}
}

// Tail returns up to n of the newest records, oldest first.
// A negative n returns everything.
func (h *History) Tail(n int) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n < 0 || n > h.count {
		n = h.count
	}
	out := make([]Record, n)
	first := h.next - n
	for i := range out {
		out[i] = h.ring[(first+i+len(h.ring))%len(h.ring)]
	}
	return out
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
