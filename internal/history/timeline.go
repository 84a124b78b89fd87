// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"observability-dashboard/internal/registry"
	"sync"
)

// Timeline keeps a bounded rolling series of records per environment.
type Timeline[T any] struct {
	mu       sync.RWMutex
	capacity int
	rings    map[registry.Environment]*ring[T]
}

func NewTimeline[T any](capacity int) *Timeline[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Timeline[T]{
		capacity: capacity,
		rings:    make(map[registry.Environment]*ring[T]),
	}
}

func (t *Timeline[T]) Append(environment registry.Environment, record T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.rings[environment]
	if !ok {
		r = newRing[T](t.capacity)
		t.rings[environment] = r
	}
	r.push(record)
}

// Last returns at most n of the most recent records, oldest first. A non-positive n returns every record.
func (t *Timeline[T]) Last(environment registry.Environment, n int) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rings[environment]
	if !ok {
		return []T{}
	}
	return r.last(n)
}

func (t *Timeline[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rings = make(map[registry.Environment]*ring[T])
}
