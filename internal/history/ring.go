// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package history

// ring is a fixed-size FIFO buffer. Callers synchronise access.
type ring[T any] struct {
	entries []T
	start   int
	size    int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{entries: make([]T, capacity)}
}

func (r *ring[T]) push(entry T) {
	capacity := len(r.entries)
	if r.size < capacity {
		r.entries[(r.start+r.size)%capacity] = entry
		r.size++
		return
	}

	// full: overwrite the oldest
	r.entries[r.start] = entry
	r.start = (r.start + 1) % capacity
}

func (r *ring[T]) list() []T {
	var result = make([]T, r.size)
	for i := 0; i < r.size; i++ {
		result[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return result
}

// last returns at most n of the most recent entries, oldest first. A non-positive n returns every entry.
func (r *ring[T]) last(n int) []T {
	entries := r.list()
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}
