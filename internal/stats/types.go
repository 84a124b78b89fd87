// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"math"
	"sort"
	"time"
)

type Summary struct {
	Today          int64   `json:"today"`
	TodayErrors    int64   `json:"todayErrors"`
	Week           int64   `json:"week"`
	WeekErrors     int64   `json:"weekErrors"`
	TodayErrorRate float64 `json:"todayErrorRate"`
	WeekErrorRate  float64 `json:"weekErrorRate"`
}

type RequestCount struct {
	Hour   time.Time `json:"hour"`
	Count  int64     `json:"requestCount"`
	Module string    `json:"moduleName"`
	Method string    `json:"method"`
}

type ErrorCount struct {
	Hour   time.Time `json:"hour"`
	Count  int64     `json:"errorCount"`
	Module string    `json:"moduleName"`
	Method string    `json:"requestMethod"`
}

type EndpointCount struct {
	Module string `json:"moduleName"`
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

type HourlyPoint struct {
	Hour     time.Time `json:"hour"`
	Requests int64     `json:"requests"`
	Errors   int64     `json:"errors"`
}

type hourCount struct {
	Hour  time.Time
	Count int64
}

// errorRate returns the share of errors among all requests in percent, rounded to two decimals.
func errorRate(requests int64, errors int64) float64 {
	if requests <= 0 {
		return 0
	}
	return math.Round(float64(errors)/float64(requests+errors)*100*100) / 100
}

// mergeHourly joins request and error counts by hour, ordered by hour.
func mergeHourly(requests []hourCount, errors []hourCount) []HourlyPoint {
	var points = make(map[int64]*HourlyPoint, len(requests))
	var point = func(hour time.Time) *HourlyPoint {
		key := hour.Unix()
		if existing, ok := points[key]; ok {
			return existing
		}
		created := &HourlyPoint{Hour: hour}
		points[key] = created
		return created
	}

	for _, request := range requests {
		point(request.Hour).Requests = request.Count
	}
	for _, e := range errors {
		point(e.Hour).Errors = e.Count
	}

	var merged = make([]HourlyPoint, 0, len(points))
	for _, p := range points {
		merged = append(merged, *p)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Hour.Before(merged[j].Hour)
	})
	return merged
}
