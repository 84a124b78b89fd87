// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/history"
	"observability-dashboard/internal/metrics"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/utils"
	"observability-dashboard/internal/verify"
	"sync"
	"time"
)

const DefaultInterval = 5 * time.Second

// Scheduler probes every service of the applied registry state on a fixed interval.
// It is the only writer of the current statuses and the ledger.
type Scheduler struct {
	prober   Prober
	ledger   *history.Ledger
	interval time.Duration
	extra    []registry.Environment

	mu         sync.RWMutex
	state      *registry.State
	generation uint64
	snapshot   Snapshot
	statuses   map[history.Key]healthcheck.Status

	databases       DatabaseChecker
	databaseHistory *history.Timeline[verify.DatabaseRecord]

	tickMu sync.Mutex
	cronMu sync.Mutex
	cron   *gocron.Scheduler

	observerMu   sync.RWMutex
	observers    map[uint64]Observer
	nextObserver uint64
}

// NewScheduler creates a stopped scheduler. The extra environments are monitored next to the active one.
func NewScheduler(prober Prober, ledger *history.Ledger, interval time.Duration, extra ...registry.Environment) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		prober:          prober,
		ledger:          ledger,
		interval:        interval,
		extra:           extra,
		snapshot:        emptySnapshot(""),
		statuses:        make(map[history.Key]healthcheck.Status),
		databaseHistory: history.NewTimeline[verify.DatabaseRecord](ledger.Capacity()),
		observers:       make(map[uint64]Observer),
	}
}

// MonitorDatabases adds the database round trip of every monitored environment to each tick.
func (s *Scheduler) MonitorDatabases(checker DatabaseChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.databases = checker
}

// Start runs one cycle immediately and then every interval. Starting a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron != nil && s.cron.IsRunning() {
		return
	}

	s.cron = gocron.NewScheduler(time.UTC)
	if _, err := s.cron.Every(s.interval).SingletonMode().Do(func() {
		s.tick(context.Background())
	}); err != nil {
		log.Error().Err(err).Msg("Could not schedule health checks")
		return
	}

	s.cron.StartAsync()
	log.Info().Msgf("Started health monitor with interval %s", s.interval)
}

// Stop cancels future ticks. A tick in progress still commits its results.
func (s *Scheduler) Stop() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron == nil {
		return
	}

	s.cron.Stop()
	s.cron = nil
	log.Info().Msg("Stopped health monitor")
}

func (s *Scheduler) Restart() {
	s.Stop()
	s.Start()
}

func (s *Scheduler) Running() bool {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	return s.cron != nil && s.cron.IsRunning()
}

// Apply replaces the registry state the scheduler probes. Ticks started under an older state are discarded.
// A different environment resets every status and ledger, otherwise only services that disappeared are pruned.
func (s *Scheduler) Apply(state *registry.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous = s.state
	s.state = state
	s.generation++

	if previous == nil || previous.Environment != state.Environment {
		for key := range s.statuses {
			metrics.DeleteService(key.Service, string(key.Environment))
		}
		s.ledger.Reset()
		s.databaseHistory.Reset()
		s.statuses = make(map[history.Key]healthcheck.Status)
		s.snapshot = emptySnapshot(state.Environment)
		log.Info().Msgf("Monitoring environment %s with %d services", state.Environment, len(state.Services))
		return
	}

	var retained = make(map[string]bool, len(state.Services))
	for _, service := range state.Services {
		retained[service.Name] = true
	}

	for key := range s.statuses {
		if !retained[key.Service] {
			delete(s.statuses, key)
			metrics.DeleteService(key.Service, string(key.Environment))
		}
	}
	for _, key := range s.ledger.Keys() {
		if !retained[key.Service] {
			s.ledger.Remove(key)
		}
	}

	var snapshot = emptySnapshot(state.Environment)
	snapshot.Timestamp = s.snapshot.Timestamp
	for environment, record := range s.snapshot.Databases {
		snapshot.Databases[environment] = record
	}
	for name, status := range s.snapshot.Services {
		if retained[name] {
			snapshot.Services[name] = status
			snapshot.Uptime[name] = s.snapshot.Uptime[name]
			snapshot.AvgResponseTime[name] = s.snapshot.AvgResponseTime[name]
		}
	}
	s.snapshot = snapshot
}

// CheckNow runs a tick outside of the schedule and returns the resulting snapshot.
func (s *Scheduler) CheckNow(ctx context.Context) Snapshot {
	return s.tick(ctx)
}

// Snapshot returns the last committed snapshot.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// History returns the last n ledger entries of a service. An empty environment means the active one.
func (s *Scheduler) History(service string, environment registry.Environment, n int) []history.Entry {
	if environment == "" {
		environment = s.Snapshot().Environment
	}
	return s.ledger.Last(history.Key{Service: service, Environment: environment}, n)
}

// DatabaseHistory returns the last n database records of an environment. An empty environment means the active one.
func (s *Scheduler) DatabaseHistory(environment registry.Environment, n int) []verify.DatabaseRecord {
	if environment == "" {
		environment = s.Snapshot().Environment
	}
	return s.databaseHistory.Last(environment, n)
}

// Subscribe registers an observer for committed snapshots and returns a function removing it again.
func (s *Scheduler) Subscribe(observer Observer) func() {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()

	var id = s.nextObserver
	s.nextObserver++
	s.observers[id] = observer

	return func() {
		s.observerMu.Lock()
		defer s.observerMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Scheduler) publish(snapshot Snapshot) {
	s.observerMu.RLock()
	defer s.observerMu.RUnlock()

	for _, observer := range s.observers {
		observer(snapshot)
	}
}

func (s *Scheduler) monitoredEnvironments(state *registry.State) []registry.Environment {
	var environments = []registry.Environment{state.Environment}
	for _, environment := range s.extra {
		if environment != state.Environment && !utils.Contains(environments, environment) {
			environments = append(environments, environment)
		}
	}
	return environments
}

// Scope narrows a snapshot to one monitored environment. Services are reported with their status in that environment.
func (s *Scheduler) Scope(snapshot Snapshot, environment registry.Environment) Snapshot {
	if environment == "" || environment == snapshot.Environment {
		return snapshot
	}

	var scoped = emptySnapshot(environment)
	scoped.Timestamp = snapshot.Timestamp
	if record, ok := snapshot.Databases[environment.Key()]; ok {
		scoped.Databases[environment.Key()] = record
	}

	for name, status := range snapshot.Services {
		environmentStatus, ok := status.Environments[environment.Key()]
		if !ok {
			continue
		}

		key := history.Key{Service: name, Environment: environment}
		scoped.Services[name] = ServiceStatus{
			Name:         status.Name,
			DisplayName:  status.DisplayName,
			Status:       environmentStatus.Status,
			Environments: map[string]EnvironmentStatus{environment.Key(): environmentStatus},
			LastCheck:    status.LastCheck,
		}
		scoped.Uptime[name] = s.ledger.UptimePercent(key)
		scoped.AvgResponseTime[name] = s.ledger.AverageResponseTime(key)
	}
	return scoped
}
