// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"math"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/registry"
	"sort"
	"sync"
	"time"
)

const DefaultCapacity = 100

type Key struct {
	Service     string
	Environment registry.Environment
}

type Entry struct {
	Status       healthcheck.Status `json:"status"`
	ResponseTime *int64             `json:"responseTime"`
	Timestamp    time.Time          `json:"timestamp"`
}

// EntryFor converts a probe outcome into a ledger entry.
func EntryFor(status healthcheck.Status, responseTime *int64, timestamp time.Time) Entry {
	return Entry{Status: status, ResponseTime: responseTime, Timestamp: timestamp}
}

// Ledger keeps a bounded rolling history per (service, environment).
type Ledger struct {
	mu       sync.RWMutex
	capacity int
	rings    map[Key]*ring[Entry]
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		rings:    make(map[Key]*ring[Entry]),
	}
}

func (l *Ledger) Capacity() int {
	return l.capacity
}

// Append adds an entry and evicts the oldest one once the capacity is exceeded.
func (l *Ledger) Append(key Key, entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rings[key]
	if !ok {
		r = newRing[Entry](l.capacity)
		l.rings[key] = r
	}
	r.push(entry)
}

// Entries returns all retained entries of a key, oldest first.
func (l *Ledger) Entries(key Key) []Entry {
	return l.Last(key, 0)
}

// Last returns at most n of the most recent entries, oldest first. A non-positive n returns every entry.
func (l *Ledger) Last(key Key, n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.rings[key]
	if !ok {
		return []Entry{}
	}

	return r.last(n)
}

func (l *Ledger) Len(key Key) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if r, ok := l.rings[key]; ok {
		return r.size
	}
	return 0
}

// UptimePercent returns the share of healthy or degraded entries, rounded to two decimals.
// An empty ledger reports 100.
func (l *Ledger) UptimePercent(key Key) float64 {
	entries := l.Entries(key)
	if len(entries) == 0 {
		return 100
	}

	var up = 0
	for _, entry := range entries {
		if entry.Status.Up() {
			up++
		}
	}
	return math.Round(float64(up)/float64(len(entries))*100*100) / 100
}

// AverageResponseTime returns the rounded mean of recorded response times, or nil if none was recorded.
func (l *Ledger) AverageResponseTime(key Key) *int64 {
	var sum, count int64
	for _, entry := range l.Entries(key) {
		if entry.ResponseTime == nil {
			continue
		}
		sum += *entry.ResponseTime
		count++
	}

	if count == 0 {
		return nil
	}
	average := int64(math.Round(float64(sum) / float64(count)))
	return &average
}

// Remove deletes the ledger of a key.
func (l *Ledger) Remove(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rings, key)
}

// RemoveService deletes the ledgers of a service in every environment.
func (l *Ledger) RemoveService(service string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.rings {
		if key.Service == service {
			delete(l.rings, key)
		}
	}
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rings = make(map[Key]*ring[Entry])
}

// Keys returns every key with a ledger, sorted by service and environment.
func (l *Ledger) Keys() []Key {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var keys = make([]Key, 0, len(l.rings))
	for key := range l.rings {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Service != keys[j].Service {
			return keys[i].Service < keys[j].Service
		}
		return keys[i].Environment < keys[j].Environment
	})
	return keys
}
