package feeds

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// RingBuffer is a fixed-capacity, insertion-ordered sample buffer. Once at
// capacity each Add evicts the oldest sample. It feeds indicator
// calculations that only care about the most recent N observations.
type RingBuffer struct {
	mu       sync.RWMutex
	capacity int
	samples  []decimal.Decimal
	head     int // index of the most recent sample, -1 while empty
}

// NewRingBuffer creates an empty buffer. Capacity must be positive.
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer capacity must be positive, got %d", capacity)
	}
	return &RingBuffer{
		capacity: capacity,
		samples:  make([]decimal.Decimal, 0, capacity),
		head:     -1,
	}, nil
}

// Add appends a sample, evicting the oldest one when at capacity.
func (rb *RingBuffer) Add(v decimal.Decimal) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.head = (rb.head + 1) % rb.capacity
	if len(rb.samples) >= rb.capacity {
		rb.samples[rb.head] = v
		return
	}
	rb.samples = append(rb.samples, v)
}

// Values returns a copy of the current samples, oldest first.
func (rb *RingBuffer) Values() []decimal.Decimal {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]decimal.Decimal, 0, len(rb.samples))
	if len(rb.samples) == 0 {
		return out
	}
	start := 0
	if len(rb.samples) >= rb.capacity {
		start = (rb.head + 1) % rb.capacity
	}
	for i := 0; i < len(rb.samples); i++ {
		out = append(out, rb.samples[(start+i)%rb.capacity])
	}
	return out
}

// MostRecent returns the newest sample, or false if the buffer is empty.
func (rb *RingBuffer) MostRecent() (decimal.Decimal, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.head < 0 {
		return decimal.Zero, false
	}
	return rb.samples[rb.head], true
}

// LeastRecent returns the oldest sample, or false if the buffer is empty.
func (rb *RingBuffer) LeastRecent() (decimal.Decimal, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.head < 0 {
		return decimal.Zero, false
	}
	if len(rb.samples) >= rb.capacity {
		return rb.samples[(rb.head+1)%rb.capacity], true
	}
	return rb.samples[0], true
}

// Full reports whether the buffer holds capacity samples.
func (rb *RingBuffer) Full() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.samples) >= rb.capacity
}

// Len returns the current number of samples.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.samples)
}

// Capacity returns the fixed capacity.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}
