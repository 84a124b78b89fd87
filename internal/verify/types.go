// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/registry"
	"time"
)

type Prober interface {
	Probe(ctx context.Context, target healthcheck.Target) healthcheck.Outcome
	ProbePath(ctx context.Context, target healthcheck.Target, path string) healthcheck.Outcome
	Url(target healthcheck.Target, path string) string
}

type DatabaseChecker interface {
	Check(ctx context.Context, db config.Database) DatabaseRecord
}

type DatabaseSource interface {
	DatabaseFor(ctx context.Context, env string) (config.Database, bool)
}

type Catalogue interface {
	Parse(name string) (registry.Environment, error)
	Environments() []registry.Environment
	Services(name string) ([]registry.ServiceDescriptor, error)
}

type DatabaseRecord struct {
	Status       healthcheck.Status    `json:"status"`
	Host         string                `json:"host"`
	Database     string                `json:"database"`
	TableCount   *int                  `json:"tableCount"`
	ServerTime   *time.Time            `json:"serverTime"`
	ResponseTime *int64                `json:"responseTime"`
	Error        string                `json:"error,omitempty"`
	ErrorKind    healthcheck.ErrorKind `json:"errorKind,omitempty"`
	LastCheck    time.Time             `json:"lastCheck"`
}

func (r DatabaseRecord) Connected() bool {
	return r.Status == healthcheck.StatusHealthy
}

type ServiceCheck struct {
	Name        string                                        `json:"name"`
	DisplayName string                                        `json:"displayName"`
	Status      healthcheck.Status                            `json:"status"`
	Endpoints   map[registry.EndpointKind]healthcheck.Outcome `json:"endpoints"`
}

type Summary struct {
	TotalServices     int  `json:"totalServices"`
	HealthyServices   int  `json:"healthyServices"`
	DatabaseConnected bool `json:"databaseConnected"`
	AllHealthy        bool `json:"allHealthy"`
}

type Result struct {
	Environment string         `json:"environment"`
	Services    []ServiceCheck `json:"services"`
	Database    DatabaseRecord `json:"database"`
	Summary     Summary        `json:"summary"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type DatabaseInfo struct {
	Name       string `json:"name,omitempty"`
	TableCount *int   `json:"tableCount,omitempty"`
}

type ServiceDatabaseCheck struct {
	Name         string             `json:"name"`
	DisplayName  string             `json:"displayName"`
	Url          string             `json:"url,omitempty"`
	Status       healthcheck.Status `json:"status"`
	ResponseTime *int64             `json:"responseTime"`
	StatusCode   int                `json:"statusCode,omitempty"`
	Database     *DatabaseInfo      `json:"database,omitempty"`
	Error        string             `json:"error,omitempty"`
}

type ServiceDatabaseSummary struct {
	TotalServices   int  `json:"totalServices"`
	HealthyServices int  `json:"healthyServices"`
	AllHealthy      bool `json:"allHealthy"`
}

type ServiceDatabaseResult struct {
	Environment string                 `json:"environment"`
	Services    []ServiceDatabaseCheck `json:"services"`
	Summary     ServiceDatabaseSummary `json:"summary"`
	Error       string                 `json:"error,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}
