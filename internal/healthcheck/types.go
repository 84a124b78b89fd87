// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package healthcheck

import (
	"observability-dashboard/internal/registry"
	"time"
)

type Status string

const (
	StatusHealthy       Status = "healthy"
	StatusDegraded      Status = "degraded"
	StatusUnhealthy     Status = "unhealthy"
	StatusNotConfigured Status = "not_configured"
	StatusUnknown       Status = "unknown"
)

// Up reports whether the status counts as reachable. Degraded services are up but imperfect.
func (s Status) Up() bool {
	return s == StatusHealthy || s == StatusDegraded
}

type ErrorKind string

const (
	ErrorKindTimeout             ErrorKind = "ProbeTimeout"
	ErrorKindConnectionRefused   ErrorKind = "ProbeConnectionRefused"
	ErrorKindHttpError           ErrorKind = "ProbeHttpError"
	ErrorKindNetworkError        ErrorKind = "ProbeNetworkError"
	ErrorKindNotConfigured       ErrorKind = "NotConfigured"
	ErrorKindDatabaseUnreachable ErrorKind = "DatabaseUnreachable"
	ErrorKindDatabaseQueryFailed ErrorKind = "DatabaseQueryFailed"
)

// Target is a single endpoint of a service. A zero Port and empty Url means nothing is configured.
type Target struct {
	Kind registry.EndpointKind `json:"kind"`
	Port int                   `json:"port,omitempty"`
	Url  string                `json:"url,omitempty"`
}

// TargetFor resolves the target of a given kind for an endpoint.
func TargetFor(endpoint registry.Endpoint, kind registry.EndpointKind) Target {
	var target = Target{Kind: kind}
	if !endpoint.Configured(kind) {
		return target
	}

	switch kind {
	case registry.EndpointLocal:
		target.Port = endpoint.LocalPort
	case registry.EndpointAws:
		target.Url = endpoint.AwsUrl
	}
	return target
}

func (t Target) Configured() bool {
	switch t.Kind {
	case registry.EndpointLocal:
		return t.Port > 0
	case registry.EndpointAws:
		return t.Url != ""
	}
	return false
}

// Outcome is the immutable result of one probe.
type Outcome struct {
	Status       Status    `json:"status"`
	Target       Target    `json:"target"`
	ResponseTime *int64    `json:"responseTime"`
	StatusCode   int       `json:"statusCode,omitempty"`
	LastCheck    time.Time `json:"lastCheck"`
	Error        string    `json:"error,omitempty"`
	ErrorKind    ErrorKind `json:"errorKind,omitempty"`
	Data         any       `json:"data,omitempty"`
}

// Merge derives the overall status of a service from the statuses of its endpoints.
// A service reachable by any path is healthy; the result does not depend on the order of the statuses.
func Merge(statuses ...Status) Status {
	var degraded, allNotConfigured = false, true
	for _, status := range statuses {
		switch status {
		case StatusHealthy:
			return StatusHealthy
		case StatusDegraded:
			degraded = true
			allNotConfigured = false
		case StatusNotConfigured:
		default:
			allNotConfigured = false
		}
	}

	if degraded {
		return StatusDegraded
	}
	if allNotConfigured {
		return StatusNotConfigured
	}
	return StatusUnhealthy
}

// MergeOutcomes applies Merge to the statuses of a set of outcomes.
func MergeOutcomes(outcomes map[registry.EndpointKind]Outcome) Status {
	var statuses = make([]Status, 0, len(outcomes))
	for _, outcome := range outcomes {
		statuses = append(statuses, outcome.Status)
	}
	return Merge(statuses...)
}
