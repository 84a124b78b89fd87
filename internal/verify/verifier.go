// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"golang.org/x/sync/errgroup"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/throttling"
	"sync"
	"time"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxConcurrent = 4
)

// Verifier runs on-demand checks that bypass the cached monitor state.
type Verifier struct {
	prober    Prober
	checker   DatabaseChecker
	databases DatabaseSource
	catalogue Catalogue
	gate      *throttling.Gate
	timeout   time.Duration
}

func NewVerifier(prober Prober, checker DatabaseChecker, databases DatabaseSource, catalogue Catalogue, verifier config.Verifier) *Verifier {
	var timeout, maxConcurrent = verifier.Timeout, verifier.MaxConcurrent
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &Verifier{
		prober:    prober,
		checker:   checker,
		databases: databases,
		catalogue: catalogue,
		gate:      throttling.NewGate(maxConcurrent),
		timeout:   timeout,
	}
}

// EndToEnd probes every service of an environment and runs a database round trip, both concurrently.
func (v *Verifier) EndToEnd(ctx context.Context, name string) (Result, error) {
	environment, services, err := v.resolve(name)
	if err != nil {
		return Result{}, err
	}

	ctx, done, err := v.enter(ctx)
	if err != nil {
		return Result{}, err
	}
	defer done()

	var result = Result{Environment: environment.Key()}
	var g errgroup.Group

	g.Go(func() error {
		result.Services = v.checkServices(ctx, environment, services)
		return nil
	})
	g.Go(func() error {
		result.Database = v.checkDatabase(ctx, environment)
		return nil
	})
	_ = g.Wait()

	for i, check := range result.Services {
		if !services[i].HasEndpoint(environment) {
			continue
		}
		result.Summary.TotalServices++
		if check.Status == healthcheck.StatusHealthy {
			result.Summary.HealthyServices++
		}
	}
	result.Summary.DatabaseConnected = result.Database.Connected()
	result.Summary.AllHealthy = result.Summary.HealthyServices == result.Summary.TotalServices && result.Summary.DatabaseConnected
	result.Timestamp = time.Now()

	return result, nil
}

// EndToEndAll runs EndToEnd for every environment concurrently, keyed by the lower-case environment.
// An environment that could not be verified carries its error instead of results.
func (v *Verifier) EndToEndAll(ctx context.Context) map[string]Result {
	return forEachEnvironment(ctx, v.catalogue.Environments(), v.EndToEnd, func(environment string, err error) Result {
		return Result{Environment: environment, Error: err.Error(), Timestamp: time.Now()}
	})
}

// ServiceDatabase asks every service of an environment for the health of its own database.
func (v *Verifier) ServiceDatabase(ctx context.Context, name string) (ServiceDatabaseResult, error) {
	environment, services, err := v.resolve(name)
	if err != nil {
		return ServiceDatabaseResult{}, err
	}

	ctx, done, err := v.enter(ctx)
	if err != nil {
		return ServiceDatabaseResult{}, err
	}
	defer done()

	var result = ServiceDatabaseResult{
		Environment: environment.Key(),
		Services:    make([]ServiceDatabaseCheck, len(services)),
	}

	var g errgroup.Group
	for i, service := range services {
		g.Go(func() error {
			result.Services[i] = v.checkServiceDatabase(ctx, service, environment)
			return nil
		})
	}
	_ = g.Wait()

	for i, check := range result.Services {
		if !services[i].HasEndpoint(environment) {
			continue
		}
		result.Summary.TotalServices++
		if check.Status == healthcheck.StatusHealthy {
			result.Summary.HealthyServices++
		}
	}
	result.Summary.AllHealthy = result.Summary.HealthyServices == result.Summary.TotalServices
	result.Timestamp = time.Now()

	return result, nil
}

func (v *Verifier) ServiceDatabaseAll(ctx context.Context) map[string]ServiceDatabaseResult {
	return forEachEnvironment(ctx, v.catalogue.Environments(), v.ServiceDatabase, func(environment string, err error) ServiceDatabaseResult {
		return ServiceDatabaseResult{Environment: environment, Error: err.Error(), Timestamp: time.Now()}
	})
}

// Database checks the database of an environment on its own.
func (v *Verifier) Database(ctx context.Context, name string) (DatabaseRecord, error) {
	environment, err := v.catalogue.Parse(name)
	if err != nil {
		return DatabaseRecord{}, err
	}

	ctx, done, err := v.enter(ctx)
	if err != nil {
		return DatabaseRecord{}, err
	}
	defer done()

	return v.checkDatabase(ctx, environment), nil
}

func (v *Verifier) DatabaseAll(ctx context.Context) map[string]DatabaseRecord {
	return forEachEnvironment(ctx, v.catalogue.Environments(), v.Database, func(environment string, err error) DatabaseRecord {
		return DatabaseRecord{Status: healthcheck.StatusUnknown, Error: err.Error(), LastCheck: time.Now()}
	})
}

func (v *Verifier) resolve(name string) (registry.Environment, []registry.ServiceDescriptor, error) {
	environment, err := v.catalogue.Parse(name)
	if err != nil {
		return "", nil, err
	}

	services, err := v.catalogue.Services(string(environment))
	if err != nil {
		return "", nil, err
	}
	return environment, services, nil
}

// enter waits for a verification slot and applies the verification timeout.
func (v *Verifier) enter(ctx context.Context) (context.Context, func(), error) {
	if err := v.gate.Enter(ctx); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	return ctx, func() {
		cancel()
		v.gate.Leave(context.Background())
	}, nil
}

func (v *Verifier) checkServices(ctx context.Context, environment registry.Environment, services []registry.ServiceDescriptor) []ServiceCheck {
	var checks = make([]ServiceCheck, len(services))
	var mu sync.Mutex
	var g errgroup.Group

	for i, service := range services {
		checks[i] = ServiceCheck{
			Name:        service.Name,
			DisplayName: service.DisplayName,
			Endpoints:   make(map[registry.EndpointKind]healthcheck.Outcome, len(registry.EndpointKinds)),
		}

		endpoint := service.Endpoint(environment)
		for _, kind := range registry.EndpointKinds {
			var check, target = &checks[i], healthcheck.TargetFor(endpoint, kind)
			g.Go(func() error {
				outcome := v.prober.Probe(ctx, target)

				mu.Lock()
				check.Endpoints[target.Kind] = outcome
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	for i := range checks {
		checks[i].Status = healthcheck.MergeOutcomes(checks[i].Endpoints)
	}
	return checks
}

func (v *Verifier) checkDatabase(ctx context.Context, environment registry.Environment) DatabaseRecord {
	db, ok := v.databases.DatabaseFor(ctx, environment.Key())
	if !ok {
		return DatabaseRecord{
			Status:    healthcheck.StatusNotConfigured,
			Error:     "no database configured for " + environment.Key(),
			ErrorKind: healthcheck.ErrorKindNotConfigured,
			LastCheck: time.Now(),
		}
	}
	return v.checker.Check(ctx, db)
}

func (v *Verifier) checkServiceDatabase(ctx context.Context, service registry.ServiceDescriptor, environment registry.Environment) ServiceDatabaseCheck {
	var check = ServiceDatabaseCheck{
		Name:        service.Name,
		DisplayName: service.DisplayName,
		Status:      healthcheck.StatusNotConfigured,
	}

	target, ok := preferredTarget(service.Endpoint(environment))
	if !ok {
		check.Error = "no endpoint configured"
		return check
	}

	outcome := v.prober.ProbePath(ctx, target, healthcheck.DatabaseHealthPath)
	check.Url = v.prober.Url(target, healthcheck.DatabaseHealthPath)
	check.Status = outcome.Status
	check.ResponseTime = outcome.ResponseTime
	check.StatusCode = outcome.StatusCode
	check.Error = outcome.Error

	info, reported := databaseInfo(outcome.Data)
	check.Database = info
	if check.Status == healthcheck.StatusHealthy && reported != "" && !reportsHealthy(reported) {
		check.Status = healthcheck.StatusUnhealthy
		check.Error = "service reports database status " + reported
	}
	return check
}

func preferredTarget(endpoint registry.Endpoint) (healthcheck.Target, bool) {
	for _, kind := range registry.EndpointKinds {
		if endpoint.Configured(kind) {
			return healthcheck.TargetFor(endpoint, kind), true
		}
	}
	return healthcheck.Target{}, false
}

func forEachEnvironment[T any](ctx context.Context, environments []registry.Environment, check func(context.Context, string) (T, error), failed func(string, error) T) map[string]T {
	var results = make(map[string]T, len(environments))
	var mu sync.Mutex
	var g errgroup.Group

	for _, environment := range environments {
		g.Go(func() error {
			result, err := check(ctx, string(environment))
			if err != nil {
				result = failed(environment.Key(), err)
			}

			mu.Lock()
			results[environment.Key()] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
