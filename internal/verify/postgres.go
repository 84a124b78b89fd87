// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/database"
	"observability-dashboard/internal/healthcheck"
	"time"
)

const (
	tableCountQuery = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'`
	serverTimeQuery = `SELECT NOW()`
)

// PostgresChecker opens a dedicated connection for every check and closes it afterwards.
type PostgresChecker struct{}

func (PostgresChecker) Check(ctx context.Context, db config.Database) DatabaseRecord {
	var record = DatabaseRecord{Host: db.Host, Database: db.Database, LastCheck: time.Now()}

	if db.Host == "" {
		record.Status = healthcheck.StatusNotConfigured
		record.ErrorKind = healthcheck.ErrorKindNotConfigured
		record.Error = "no database host configured"
		return record
	}

	start := time.Now()
	var elapsed = func() *int64 {
		ms := time.Since(start).Milliseconds()
		return &ms
	}

	conn, err := pgx.Connect(ctx, database.ConnString(db))
	if err != nil {
		log.Debug().Err(err).Msgf("Could not connect to database %s on host %s", db.Database, db.Host)
		record.Status = healthcheck.StatusUnhealthy
		record.ErrorKind = healthcheck.ErrorKindDatabaseUnreachable
		record.Error = err.Error()
		record.ResponseTime = elapsed()
		return record
	}
	defer conn.Close(context.Background())

	var tableCount int
	if err := conn.QueryRow(ctx, tableCountQuery).Scan(&tableCount); err != nil {
		return failedQuery(record, err, elapsed())
	}

	var serverTime time.Time
	if err := conn.QueryRow(ctx, serverTimeQuery).Scan(&serverTime); err != nil {
		return failedQuery(record, err, elapsed())
	}

	record.Status = healthcheck.StatusHealthy
	record.TableCount = &tableCount
	record.ServerTime = &serverTime
	record.ResponseTime = elapsed()
	return record
}

func failedQuery(record DatabaseRecord, err error, responseTime *int64) DatabaseRecord {
	log.Debug().Err(err).Msgf("Database query on host %s failed", record.Host)
	record.Status = healthcheck.StatusUnhealthy
	record.ErrorKind = healthcheck.ErrorKindDatabaseQueryFailed
	record.Error = err.Error()
	record.ResponseTime = responseTime
	return record
}
