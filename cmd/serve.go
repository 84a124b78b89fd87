// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"observability-dashboard/internal/api"
	"observability-dashboard/internal/auth"
	"observability-dashboard/internal/broadcast"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/database"
	"observability-dashboard/internal/history"
	"observability-dashboard/internal/log"
	"observability-dashboard/internal/logs"
	"observability-dashboard/internal/monitor"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/stats"
	"observability-dashboard/internal/tracing"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the health monitor and the dashboard api",
	RunE:  startDashboard,
}

func initialize() {
	config.Load()

	log.SetLogLevel(config.Current.LogLevel)
}

func startDashboard(cmd *cobra.Command, args []string) error {
	initialize()
	var logger = log.Component("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	var state = c.registry.Current()
	var monitored = c.monitoredEnvironments()

	ledger := history.NewLedger(config.Current.Monitor.HistorySize)
	scheduler := monitor.NewScheduler(c.prober, ledger, config.Current.Monitor.Interval, monitored...)
	scheduler.Apply(state)
	if config.Current.Monitor.Databases {
		scheduler.MonitorDatabases(c.verifier)
	}

	hub := broadcast.NewHub(scheduler, state.ServiceNames(), config.Current.WebSocket.SendBuffer)
	unsubscribe := scheduler.Subscribe(hub.Publish)
	defer unsubscribe()

	var deps = api.Dependencies{
		Registry:  c.registry,
		Scheduler: scheduler,
		Verifier:  c.verifier,
		Hub:       hub,
		Auth:      auth.NewService(c.authSource()),
		Sources:   logs.SourcesFor(state.Services, append([]registry.Environment{state.Environment}, monitored...)),
	}

	var tailer *logs.Tailer
	if config.Current.Logs.Enabled {
		tailer = logs.NewTailer(deps.Sources, hub)
		if err := tailer.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Could not start log tailer")
			tailer = nil
		} else {
			deps.Tailer = tailer
		}
	}

	var statsPool *pgxpool.Pool
	if config.Current.Stats.Enabled {
		pool, err := database.Connect(ctx, config.Current.Stats.Database)
		if err != nil {
			logger.Error().Err(err).Msg("Request statistics are unavailable")
		} else {
			statsPool = pool
			deps.Stats = stats.NewStore(pool)
		}
	}

	scheduler.Start()

	server := api.New(deps)
	var listenErr = make(chan error, 1)
	go func() {
		listenErr <- server.Listen(config.Current.Port)
	}()

	var result error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case result = <-listenErr:
		logger.Error().Err(result).Msg("Api stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Could not shut down api gracefully")
	}
	scheduler.Stop()
	if tailer != nil {
		tailer.Stop()
	}
	hub.Shutdown()
	if statsPool != nil {
		statsPool.Close()
	}
	tracing.Shutdown(shutdownCtx)

	logger.Info().Msg("Server closed")
	return result
}
