// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/auth"
	"observability-dashboard/internal/broadcast"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/logs"
	"observability-dashboard/internal/metrics"
	"observability-dashboard/internal/monitor"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/stats"
	"observability-dashboard/internal/throttling"
	"observability-dashboard/internal/tracing"
	"observability-dashboard/internal/verify"
	"strings"
	"sync"
	"time"
)

const (
	serviceName    = "observability-dashboard"
	dashboardName  = "Bulwark Observability Dashboard"
	dashboardVer   = "1.0.0"
	defaultPrefix  = "/api"
	defaultHistory = 50
)

// StatsStore serves the request statistics. A nil store answers every statistics route with empty data.
type StatsStore interface {
	Summary(ctx context.Context) (stats.Summary, error)
	Requests(ctx context.Context, from time.Time, to time.Time) ([]stats.RequestCount, error)
	Errors(ctx context.Context, from time.Time, to time.Time) ([]stats.ErrorCount, error)
	TopEndpoints(ctx context.Context, limit int) ([]stats.EndpointCount, error)
	Hourly(ctx context.Context, hours int) ([]stats.HourlyPoint, error)
	Connected(ctx context.Context) bool
}

type LogStatus interface {
	Status() []logs.SourceStatus
}

type Dependencies struct {
	Registry  *registry.Registry
	Scheduler *monitor.Scheduler
	Verifier  *verify.Verifier
	Hub       *broadcast.Hub
	Auth      *auth.Service
	Stats     StatsStore
	Tailer    LogStatus
	Sources   []logs.Source
}

type Server struct {
	app       *fiber.App
	deps      Dependencies
	checkGate *throttling.Gate
	startedAt time.Time

	// switchMu keeps the registry and the scheduler on the same environment.
	switchMu sync.Mutex
}

func New(deps Dependencies) *Server {
	s := &Server{
		deps:      deps,
		checkGate: throttling.NewGate(1),
		startedAt: time.Now(),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handleError,
	})

	s.app.Use(tracing.Middleware())
	s.app.Use(metrics.RequestCounter())
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{AllowOrigins: allowedOrigins()}))
	s.app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(*fiber.Ctx) bool {
			return s.deps.Scheduler.Running()
		},
	}))

	s.app.Get("/health", getLiveness)
	s.app.Get("/metrics", metrics.NewPrometheusMiddleware())

	s.registerWebSockets()

	api := s.app.Group(prefix())

	authGroup := api.Group("/auth")
	authGroup.Post("/login", s.postLogin)
	authGroup.Get("/verify", s.getVerify)
	authGroup.Post("/logout", postLogout)

	health := api.Group("/health", s.requireToken)
	health.Get("/", s.getHealth)
	health.Get("/history/:service", s.getHistory)
	health.Post("/check", s.postCheck)
	health.Get("/e2e", s.getEndToEnd)
	health.Get("/e2e/:env", s.getEndToEnd)
	health.Get("/service-db", s.getServiceDatabase)
	health.Get("/service-db/:env", s.getServiceDatabase)
	health.Get("/databases", s.getDatabases)
	health.Get("/databases/history/:env", s.getDatabaseHistory)

	environment := api.Group("/environment", s.requireToken)
	environment.Get("/", s.getEnvironment)
	environment.Post("/switch", s.postSwitch)
	environment.Get("/database", s.getDatabase)
	environment.Get("/database/all", s.getDatabaseAll)
	environment.Get("/database/:env", s.getDatabase)

	statistics := api.Group("/metrics", s.requireToken)
	statistics.Get("/summary", s.getSummary)
	statistics.Get("/requests", s.getRequests)
	statistics.Get("/errors", s.getErrors)
	statistics.Get("/top-endpoints", s.getTopEndpoints)
	statistics.Get("/hourly", s.getHourly)
	statistics.Get("/db-status", s.getStatsStatus)

	logGroup := api.Group("/logs", s.requireToken)
	logGroup.Get("/recent", s.getRecentLogs)
	logGroup.Get("/status", s.getLogStatus)

	api.Get("/info", s.requireToken, s.getInfo)

	api.Use(func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "API endpoint not found")
	})

	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(port int) error {
	log.Info().Msgf("Listening on port %d", port)
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func getLiveness(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":    "ok",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) getInfo(ctx *fiber.Ctx) error {
	type serviceInfo struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		Port        int    `json:"port,omitempty"`
	}

	var state = s.deps.Registry.Current()
	var services = make([]serviceInfo, 0, len(state.Services))
	for _, service := range state.Services {
		services = append(services, serviceInfo{
			Name:        service.Name,
			DisplayName: service.DisplayName,
			Port:        service.Endpoint(state.Environment).LocalPort,
		})
	}

	return ctx.JSON(fiber.Map{
		"name":        dashboardName,
		"version":     dashboardVer,
		"environment": state.Environment,
		"services":    services,
		"uptime":      time.Since(s.startedAt).Seconds(),
	})
}

func handleError(ctx *fiber.Ctx, err error) error {
	var code = fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.Is(err, registry.ErrInvalidEnvironment):
		code = fiber.StatusBadRequest
	default:
		log.Error().Err(err).Msgf("Request %s %s failed", ctx.Method(), ctx.Path())
	}

	return ctx.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func prefix() string {
	var p = strings.TrimRight(config.Current.ApiPrefix, "/")
	if p == "" {
		return defaultPrefix
	}
	return p
}

func allowedOrigins() string {
	if len(config.Current.WebSocket.AllowedOrigins) == 0 {
		return "*"
	}
	return strings.Join(config.Current.WebSocket.AllowedOrigins, ",")
}

func historyLimit() int {
	if config.Current.Monitor.HistoryLimit > 0 {
		return config.Current.Monitor.HistoryLimit
	}
	return defaultHistory
}
