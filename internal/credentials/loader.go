// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTtl = time.Minute

	ModuleDashboard = "observability-dashboard"
	ModuleDatabase  = "database"
	EnvGlobal       = "GLOBAL"

	credentialsQuery = `SELECT attributes FROM app_credentials WHERE env = $1 AND module = $2`
)

var ErrNotFound = errors.New("credentials not found")

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cached struct {
	attributes []byte
	fetched    time.Time
}

// Loader reads JSON attributes from the app_credentials table and caches them for a fixed time.
// When the database fails, the last known value is served even if it expired.
type Loader struct {
	db  Querier
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cached
}

func NewLoader(db Querier, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultTtl
	}
	return &Loader{
		db:      db,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cached),
	}
}

// Decode loads the attributes of the given environment and module into target.
func (l *Loader) Decode(ctx context.Context, env string, module string, target any) error {
	attributes, err := l.attributes(ctx, strings.ToUpper(env), module)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(attributes, target); err != nil {
		return fmt.Errorf("invalid credentials for %s:%s: %w", env, module, err)
	}
	return nil
}

func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]cached)
}

func (l *Loader) attributes(ctx context.Context, env string, module string) ([]byte, error) {
	var key = env + ":" + module

	l.mu.Lock()
	entry, ok := l.entries[key]
	l.mu.Unlock()

	if ok && l.now().Sub(entry.fetched) < l.ttl {
		return entry.attributes, nil
	}

	var attributes []byte
	err := l.db.QueryRow(ctx, credentialsQuery, env, module).Scan(&attributes)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("%s:%s: %w", env, module, ErrNotFound)
	case err != nil:
		if ok {
			log.Warn().Err(err).Msgf("Could not refresh credentials %s, using cached value", key)
			return entry.attributes, nil
		}
		return nil, fmt.Errorf("could not query credentials %s: %w", key, err)
	}

	l.mu.Lock()
	l.entries[key] = cached{attributes: attributes, fetched: l.now()}
	l.mu.Unlock()

	return attributes, nil
}
