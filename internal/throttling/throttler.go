// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package throttling

import (
	"context"
	"github.com/1pkg/gohalt"
	"time"
)

const retryInterval = 10 * time.Millisecond

// Gate limits how many callers may run a section at the same time.
type Gate struct {
	throttler gohalt.Throttler
}

func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{throttler: gohalt.NewThrottlerRunning(uint64(limit))}
}

// TryEnter acquires a slot without waiting.
func (g *Gate) TryEnter(ctx context.Context) bool {
	if err := g.throttler.Acquire(ctx); err != nil {
		// the running counter is raised even for rejected callers
		_ = g.throttler.Release(ctx)
		return false
	}
	return true
}

// Enter waits for a free slot until the context is done.
func (g *Gate) Enter(ctx context.Context) error {
	for !g.TryEnter(ctx) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil
}

func (g *Gate) Leave(ctx context.Context) {
	_ = g.throttler.Release(ctx)
}
