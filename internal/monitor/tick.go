// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/history"
	"observability-dashboard/internal/metrics"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/verify"
	"sync"
	"time"
)

type probeJob struct {
	service     string
	environment registry.Environment
	target      healthcheck.Target
	outcome     healthcheck.Outcome
}

func (s *Scheduler) tick(ctx context.Context) Snapshot {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.RLock()
	var state, generation, databases = s.state, s.generation, s.databases
	s.mu.RUnlock()

	if state == nil {
		log.Debug().Msg("Skipping health check without registry state")
		return s.Snapshot()
	}

	var environments = s.monitoredEnvironments(state)
	var jobs []probeJob
	var records map[registry.Environment]verify.DatabaseRecord

	var g errgroup.Group
	g.Go(func() error {
		jobs = s.probeAll(ctx, state, environments)
		return nil
	})
	g.Go(func() error {
		records = checkDatabases(ctx, databases, environments)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		log.Debug().Msgf("Discarding health check results of environment %s", state.Environment)
		return s.Snapshot()
	}
	var snapshot = s.commit(state, environments, jobs, records)
	s.mu.Unlock()

	s.publish(snapshot)
	return snapshot
}

// probeAll probes every service, environment and endpoint kind concurrently and waits for all of them.
func (s *Scheduler) probeAll(ctx context.Context, state *registry.State, environments []registry.Environment) []probeJob {
	var jobs = make([]probeJob, 0, len(state.Services)*len(environments)*len(registry.EndpointKinds))
	for _, service := range state.Services {
		for _, environment := range environments {
			endpoint := service.Endpoint(environment)
			for _, kind := range registry.EndpointKinds {
				jobs = append(jobs, probeJob{
					service:     service.Name,
					environment: environment,
					target:      healthcheck.TargetFor(endpoint, kind),
				})
			}
		}
	}

	var g errgroup.Group
	for i := range jobs {
		var job = &jobs[i]
		g.Go(func() error {
			job.outcome = s.prober.Probe(ctx, job.target)
			metrics.RecordProbe(job.service, string(job.environment), job.outcome)
			return nil
		})
	}
	_ = g.Wait()

	return jobs
}

// checkDatabases runs the database round trip of every environment concurrently. A nil checker checks nothing.
func checkDatabases(ctx context.Context, checker DatabaseChecker, environments []registry.Environment) map[registry.Environment]verify.DatabaseRecord {
	var records = make(map[registry.Environment]verify.DatabaseRecord, len(environments))
	if checker == nil {
		return records
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, environment := range environments {
		g.Go(func() error {
			record, err := checker.Database(ctx, string(environment))
			if err != nil {
				record = verify.DatabaseRecord{Status: healthcheck.StatusUnknown, Error: err.Error(), LastCheck: time.Now()}
			}

			mu.Lock()
			records[environment] = record
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// commit merges the probe results into a new snapshot. Callers hold the write lock.
func (s *Scheduler) commit(state *registry.State, environments []registry.Environment, jobs []probeJob, records map[registry.Environment]verify.DatabaseRecord) Snapshot {
	var now = time.Now()

	var outcomes = make(map[history.Key]map[registry.EndpointKind]healthcheck.Outcome)
	for _, job := range jobs {
		key := history.Key{Service: job.service, Environment: job.environment}
		if outcomes[key] == nil {
			outcomes[key] = make(map[registry.EndpointKind]healthcheck.Outcome, len(registry.EndpointKinds))
		}
		outcomes[key][job.target.Kind] = job.outcome
	}

	var snapshot = emptySnapshot(state.Environment)
	snapshot.Timestamp = now

	for _, environment := range environments {
		record, ok := records[environment]
		if !ok {
			continue
		}
		s.databaseHistory.Append(environment, record)
		snapshot.Databases[environment.Key()] = record
	}

	for _, service := range state.Services {
		var status = ServiceStatus{
			Name:         service.Name,
			DisplayName:  service.DisplayName,
			Environments: make(map[string]EnvironmentStatus, len(environments)),
			LastCheck:    now,
		}

		for _, environment := range environments {
			key := history.Key{Service: service.Name, Environment: environment}
			merged := healthcheck.MergeOutcomes(outcomes[key])

			s.ledger.Append(key, history.EntryFor(merged, responseTimeOf(merged, outcomes[key]), now))
			s.logTransition(key, merged)
			metrics.RecordServiceStatus(service.Name, string(environment), merged, s.ledger.UptimePercent(key))

			status.Environments[environment.Key()] = EnvironmentStatus{Status: merged, Endpoints: outcomes[key]}
			if environment == state.Environment {
				status.Status = merged
			}
		}

		activeKey := history.Key{Service: service.Name, Environment: state.Environment}
		snapshot.Services[service.Name] = status
		snapshot.Uptime[service.Name] = s.ledger.UptimePercent(activeKey)
		snapshot.AvgResponseTime[service.Name] = s.ledger.AverageResponseTime(activeKey)
	}

	s.snapshot = snapshot
	return snapshot
}

func (s *Scheduler) logTransition(key history.Key, status healthcheck.Status) {
	previous, ok := s.statuses[key]
	s.statuses[key] = status

	if ok && previous != status {
		log.Info().
			Str("service", key.Service).
			Str("environment", string(key.Environment)).
			Msgf("Service %s changed from %s to %s", key.Service, previous, status)
	}
}

// responseTimeOf picks the response time of the endpoint that decided the merged status.
// Services that are not up record none.
func responseTimeOf(merged healthcheck.Status, outcomes map[registry.EndpointKind]healthcheck.Outcome) *int64 {
	if !merged.Up() {
		return nil
	}

	for _, kind := range registry.EndpointKinds {
		outcome, ok := outcomes[kind]
		if ok && outcome.Status == merged && outcome.ResponseTime != nil {
			return outcome.ResponseTime
		}
	}
	return nil
}
