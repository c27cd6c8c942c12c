package engine

import "github.com/roach88/satset/internal/ir"

// History is a fixed-capacity rolling buffer of readings.
//
// Values are returned newest-first; once full, pushing drops the oldest
// reading. Index 0 is always the most recent value.
//
// Not safe for concurrent writers.
type History struct {
	buf  []ir.Value
	head int // index of the newest value
	size int
}

// NewHistory creates a buffer holding up to capacity readings.
// Capacities below 1 are raised to 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]ir.Value, capacity), head: -1}
}

// Push records v as the newest reading.
func (h *History) Push(v ir.Value) {
	h.head = (h.head + 1) % len(h.buf)
	h.buf[h.head] = v
	if h.size < len(h.buf) {
		h.size++
	}
}

// Latest returns the newest reading.
func (h *History) Latest() (ir.Value, bool) {
	if h.size == 0 {
		return nil, false
	}
	return h.buf[h.head], true
}

// Values returns a copy of the readings, newest first.
func (h *History) Values() []ir.Value {
	out := make([]ir.Value, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - i + len(h.buf)) % len(h.buf)
		out[i] = h.buf[idx]
	}
	return out
}

// Len returns the number of readings held.
func (h *History) Len() int { return h.size }

// Cap returns the buffer capacity.
func (h *History) Cap() int { return len(h.buf) }
