package ringbuf

import "sync"

// Ring is a thread-safe fixed-size circular buffer with O(1) append and
// O(N) read. Once full, each Append overwrites the oldest entry.
type Ring[T any] struct {
	mu      sync.RWMutex // protects all fields
	entries []T
	head    int // next write position
	size    int // entries stored, ≤ len(entries)
}

// New returns a Ring holding up to capN entries (minimum 1).
func New[T any](capN int) *Ring[T] {
	if capN < 1 {
		capN = 1
	}
	return &Ring[T]{entries: make([]T, capN)}
}

// Append adds an entry, overwriting the oldest when full.
func (r *Ring[T]) Append(entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capN := len(r.entries)
	r.entries[r.head] = entry
	r.head = (r.head + 1) % capN
	if r.size < capN {
		r.size++
	}
}

// Read returns up to n entries, newest → oldest, in a new slice.
// n ≤ 0 or n > capacity means everything available.
func (r *Ring[T]) Read(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capN := len(r.entries)
	if n <= 0 || n > r.size {
		n = r.size
	}

	out := make([]T, n)
	newest := (r.head - 1 + capN) % capN
	for i := 0; i < n; i++ {
		out[i] = r.entries[(newest-i+capN)%capN]
	}
	return out
}

func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring[T]) Cap() int { return len(r.entries) }
