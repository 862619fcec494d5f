package buffer

import "sync"

// RingBuffer is a fixed-size circular buffer. Once full, each Push
// overwrites the oldest element.
type RingBuffer[T any] struct {
	buffer []T
	size   int
	head   int
	count  int
	mu     sync.RWMutex
}

// NewRingBuffer creates a new ring buffer with the specified size. Sizes
// below one are raised to one.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Push adds a new element to the buffer
func (rb *RingBuffer[T]) Push(v T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buffer[rb.head] = v
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

func (rb *RingBuffer[T]) Cap() int { return rb.size }

// Latest returns up to n elements, newest first, without removing them.
// n <= 0 returns everything.
func (rb *RingBuffer[T]) Latest(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || n > rb.count {
		n = rb.count
	}
	out := make([]T, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, rb.buffer[(rb.head-i+rb.size)%rb.size])
	}
	return out
}
