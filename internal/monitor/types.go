// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/verify"
	"time"
)

type Prober interface {
	Probe(ctx context.Context, target healthcheck.Target) healthcheck.Outcome
}

// DatabaseChecker runs the database round trip of an environment.
type DatabaseChecker interface {
	Database(ctx context.Context, name string) (verify.DatabaseRecord, error)
}

// Observer receives every committed snapshot. Observers must not block.
type Observer func(snapshot Snapshot)

type EnvironmentStatus struct {
	Status    healthcheck.Status                             `json:"status"`
	Endpoints map[registry.EndpointKind]healthcheck.Outcome `json:"endpoints"`
}

// ServiceStatus is the merged view of one service. Status is the merged status in the active environment.
type ServiceStatus struct {
	Name         string                       `json:"name"`
	DisplayName  string                       `json:"displayName"`
	Status       healthcheck.Status           `json:"status"`
	Environments map[string]EnvironmentStatus `json:"environments"`
	LastCheck    time.Time                    `json:"lastCheck"`
}

// Snapshot is the state committed by one tick. It is never mutated after being committed.
// Databases is keyed by the lower-case environment and only filled when databases are monitored.
type Snapshot struct {
	Environment     registry.Environment             `json:"environment"`
	Services        map[string]ServiceStatus         `json:"services"`
	Uptime          map[string]float64               `json:"uptime"`
	AvgResponseTime map[string]*int64                `json:"avgResponseTime"`
	Databases       map[string]verify.DatabaseRecord `json:"databases"`
	Timestamp       time.Time                        `json:"timestamp"`
}

func emptySnapshot(environment registry.Environment) Snapshot {
	return Snapshot{
		Environment:     environment,
		Services:        map[string]ServiceStatus{},
		Uptime:          map[string]float64{},
		AvgResponseTime: map[string]*int64{},
		Databases:       map[string]verify.DatabaseRecord{},
	}
}

// Status returns the merged status of a service in the active environment.
func (s Snapshot) Status(service string) healthcheck.Status {
	if status, ok := s.Services[service]; ok {
		return status.Status
	}
	return healthcheck.StatusUnknown
}
