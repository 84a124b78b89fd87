// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"net"
	"net/url"
	"observability-dashboard/internal/config"
	"strconv"
	"time"
)

const (
	defaultPort    = 5432
	connectTimeout = 5 * time.Second
	maxConnections = 5
)

// Querier is the subset of a pgx pool used by the stores.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ConnString builds a postgres URL for the given database.
func ConnString(db config.Database) string {
	var port = db.Port
	if port <= 0 {
		port = defaultPort
	}

	var u = url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(port)),
		Path:   "/" + db.Database,
	}
	if db.User != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}

	var query = url.Values{}
	if db.SslMode != "" {
		query.Set("sslmode", db.SslMode)
	}
	query.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	u.RawQuery = query.Encode()

	return u.String()
}

// Connect opens a small pool and verifies it with a ping.
func Connect(ctx context.Context, db config.Database) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(db))
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration for host %s: %w", db.Host, err)
	}
	poolConfig.MaxConns = maxConnections
	poolConfig.MaxConnIdleTime = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create pool for host %s: %w", db.Host, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not reach database %s on host %s: %w", db.Database, db.Host, err)
	}

	log.Info().Msgf("Connected to database %s on host %s", db.Database, db.Host)
	return pool, nil
}
