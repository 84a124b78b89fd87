// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5"
	"observability-dashboard/internal/database"
	"time"
)

const (
	DefaultTopLimit = 10
	DefaultHours    = 24
	maxHours        = 24 * 30
	maxRows         = 500
)

const notDeleted = `(is_deleted = false OR is_deleted IS NULL)`

var (
	requestsQuery = `
		SELECT DATE_TRUNC('hour', created_dt) AS hour, COUNT(*), COALESCE(module_name, ''), COALESCE(method, '')
		FROM REQUEST_AUDIT
		WHERE created_dt >= $1 AND created_dt <= $2 AND ` + notDeleted + `
		GROUP BY 1, 3, 4
		ORDER BY hour DESC
		LIMIT ` + fmt.Sprint(maxRows)

	errorsQuery = `
		SELECT DATE_TRUNC('hour', created_dt) AS hour, COUNT(*), COALESCE(module_name, ''), COALESCE(request_method, '')
		FROM REQUEST_AUDIT_ERR
		WHERE created_dt >= $1 AND created_dt <= $2 AND ` + notDeleted + `
		GROUP BY 1, 3, 4
		ORDER BY hour DESC
		LIMIT ` + fmt.Sprint(maxRows)

	topEndpointsQuery = `
		SELECT module_name, COALESCE(method, ''), COUNT(*) AS count
		FROM REQUEST_AUDIT
		WHERE created_dt >= NOW() - INTERVAL '24 hours' AND ` + notDeleted + ` AND module_name IS NOT NULL
		GROUP BY 1, 2
		ORDER BY count DESC
		LIMIT $1`

	hourlyQuery = `
		SELECT DATE_TRUNC('hour', created_dt) AS hour, COUNT(*)
		FROM %s
		WHERE created_dt >= NOW() - make_interval(hours => $1) AND ` + notDeleted + `
		GROUP BY 1
		ORDER BY hour ASC`

	summaryQuery = `
		SELECT
			(SELECT COUNT(*) FROM REQUEST_AUDIT WHERE created_dt >= CURRENT_DATE AND ` + notDeleted + `),
			(SELECT COUNT(*) FROM REQUEST_AUDIT_ERR WHERE created_dt >= CURRENT_DATE AND ` + notDeleted + `),
			(SELECT COUNT(*) FROM REQUEST_AUDIT WHERE created_dt >= NOW() - INTERVAL '7 days' AND ` + notDeleted + `),
			(SELECT COUNT(*) FROM REQUEST_AUDIT_ERR WHERE created_dt >= NOW() - INTERVAL '7 days' AND ` + notDeleted + `)`
)

// Store reads the request audit tables written by the monitored services.
type Store struct {
	db database.Querier
}

func NewStore(db database.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	if err := s.db.QueryRow(ctx, summaryQuery).Scan(&summary.Today, &summary.TodayErrors, &summary.Week, &summary.WeekErrors); err != nil {
		return Summary{}, fmt.Errorf("could not query request summary: %w", err)
	}

	summary.TodayErrorRate = errorRate(summary.Today, summary.TodayErrors)
	summary.WeekErrorRate = errorRate(summary.Week, summary.WeekErrors)
	return summary, nil
}

func (s *Store) Requests(ctx context.Context, from time.Time, to time.Time) ([]RequestCount, error) {
	rows, err := s.db.Query(ctx, requestsQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("could not query requests: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[RequestCount])
}

func (s *Store) Errors(ctx context.Context, from time.Time, to time.Time) ([]ErrorCount, error) {
	rows, err := s.db.Query(ctx, errorsQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("could not query errors: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ErrorCount])
}

func (s *Store) TopEndpoints(ctx context.Context, limit int) ([]EndpointCount, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	rows, err := s.db.Query(ctx, topEndpointsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query top endpoints: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[EndpointCount])
}

// Hourly returns requests and errors per hour of the last hours.
func (s *Store) Hourly(ctx context.Context, hours int) ([]HourlyPoint, error) {
	if hours <= 0 {
		hours = DefaultHours
	}
	if hours > maxHours {
		hours = maxHours
	}

	requests, err := s.hourly(ctx, "REQUEST_AUDIT", hours)
	if err != nil {
		return nil, err
	}
	errors, err := s.hourly(ctx, "REQUEST_AUDIT_ERR", hours)
	if err != nil {
		return nil, err
	}
	return mergeHourly(requests, errors), nil
}

func (s *Store) hourly(ctx context.Context, table string, hours int) ([]hourCount, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(hourlyQuery, table), hours)
	if err != nil {
		return nil, fmt.Errorf("could not query hourly counts of %s: %w", table, err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[hourCount])
}

// Connected reports whether the statistics database answers a trivial query.
func (s *Store) Connected(ctx context.Context) bool {
	var one int
	return s.db.QueryRow(ctx, `SELECT 1`).Scan(&one) == nil
}
