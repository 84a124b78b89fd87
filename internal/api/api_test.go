// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"observability-dashboard/internal/auth"
	"observability-dashboard/internal/broadcast"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/credentials"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/history"
	"observability-dashboard/internal/logs"
	"observability-dashboard/internal/monitor"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/stats"
	"observability-dashboard/internal/test"
	"observability-dashboard/internal/verify"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type databaseCheckerMock struct {
	mock.Mock
}

func (d *databaseCheckerMock) Check(ctx context.Context, db config.Database) verify.DatabaseRecord {
	args := d.Called(db)
	return args.Get(0).(verify.DatabaseRecord)
}

type statsStoreMock struct {
	mock.Mock
}

func (s *statsStoreMock) Summary(ctx context.Context) (stats.Summary, error) {
	args := s.Called()
	return args.Get(0).(stats.Summary), args.Error(1)
}

func (s *statsStoreMock) Requests(ctx context.Context, from time.Time, to time.Time) ([]stats.RequestCount, error) {
	args := s.Called(from, to)
	return args.Get(0).([]stats.RequestCount), args.Error(1)
}

func (s *statsStoreMock) Errors(ctx context.Context, from time.Time, to time.Time) ([]stats.ErrorCount, error) {
	args := s.Called(from, to)
	return args.Get(0).([]stats.ErrorCount), args.Error(1)
}

func (s *statsStoreMock) TopEndpoints(ctx context.Context, limit int) ([]stats.EndpointCount, error) {
	args := s.Called(limit)
	return args.Get(0).([]stats.EndpointCount), args.Error(1)
}

func (s *statsStoreMock) Hourly(ctx context.Context, hours int) ([]stats.HourlyPoint, error) {
	args := s.Called(hours)
	return args.Get(0).([]stats.HourlyPoint), args.Error(1)
}

func (s *statsStoreMock) Connected(ctx context.Context) bool {
	return s.Called().Bool(0)
}

type fixture struct {
	server    *Server
	registry  *registry.Registry
	scheduler *monitor.Scheduler
	checker   *databaseCheckerMock
	stats     *statsStoreMock
}

func newFixture(t *testing.T) *fixture {
	config.Current = test.BuildTestConfig()

	catalogue, err := registry.NewFromConfig(&config.Current)
	require.NoError(t, err)

	prober := new(test.ProberMock)
	prober.On("Probe", mock.Anything, mock.MatchedBy(func(target healthcheck.Target) bool { return target.Configured() })).
		Return(test.HealthyOutcome(healthcheck.Target{}, 5))
	prober.On("Probe", mock.Anything, mock.MatchedBy(func(target healthcheck.Target) bool { return !target.Configured() })).
		Return(test.NotConfiguredOutcome(healthcheck.Target{}))

	scheduler := monitor.NewScheduler(prober, history.NewLedger(config.Current.Monitor.HistorySize), config.Current.Monitor.Interval)
	scheduler.Apply(catalogue.Current())
	t.Cleanup(scheduler.Stop)

	checker := new(databaseCheckerMock)
	databases := credentials.DatabaseSource{Fallback: config.Current.Databases}
	verifier := verify.NewVerifier(prober, checker, databases, catalogue, config.Current.Verifier)

	statsStore := new(statsStoreMock)

	server := New(Dependencies{
		Registry:  catalogue,
		Scheduler: scheduler,
		Verifier:  verifier,
		Hub:       broadcast.NewHub(scheduler, catalogue.Current().ServiceNames(), config.Current.WebSocket.SendBuffer),
		Auth:      auth.NewService(auth.NewConfigSource(config.Current.Security)),
		Stats:     statsStore,
	})

	return &fixture{server: server, registry: catalogue, scheduler: scheduler, checker: checker, stats: statsStore}
}

func (f *fixture) do(t *testing.T, method string, path string, body string) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.TestToken)
	if body != "" {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	return f.send(t, request)
}

func (f *fixture) send(t *testing.T, request *http.Request) (*http.Response, map[string]any) {
	response, err := f.server.App().Test(request, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return response, decoded
}

func TestLiveness(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	response, body := f.send(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("ok", body["status"])
	assertions.Equal("observability-dashboard", body["service"])
	assertions.NotEmpty(body["timestamp"])
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	response, body := f.send(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assertions.Equal(http.StatusUnauthorized, response.StatusCode)
	assertions.Equal("Unauthorized", body["error"])

	request := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer wrong")
	response, _ = f.send(t, request)
	assertions.Equal(http.StatusUnauthorized, response.StatusCode)

	response, body = f.do(t, http.MethodGet, "/api/health", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("DEV", body["environment"])
}

func TestProtectedRoutes_OpenWithoutSecurity(t *testing.T) {
	f := newFixture(t)
	config.Current.Security.Enabled = false

	response, _ := f.send(t, httptest.NewRequest(http.MethodGet, "/api/info", nil))
	assert.Equal(t, http.StatusOK, response.StatusCode)
}

func TestLogin(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	login := func(body string) (*http.Response, map[string]any) {
		request := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return f.send(t, request)
	}

	response, body := login(`{"username":"admin","password":"s3cret"}`)
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal(true, body["success"])
	assertions.Equal(test.TestToken, body["token"])
	assertions.Equal("admin", body["user"].(map[string]any)["username"])
	assertions.NotContains(body["user"], "password")

	response, body = login(`{"username":"admin","password":"nope"}`)
	assertions.Equal(http.StatusUnauthorized, response.StatusCode)
	assertions.Equal(false, body["success"])
	assertions.Equal("Invalid credentials", body["message"])
}

func TestVerifyAndLogout(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/api/auth/verify", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal(true, body["valid"])

	response, body = f.send(t, httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil))
	assertions.Equal(http.StatusUnauthorized, response.StatusCode)
	assertions.Equal(false, body["valid"])

	response, body = f.send(t, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal(true, body["success"])
}

func TestForcedCheck_AndHistory(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodPost, "/api/health/check", "")
	assertions.Equal(http.StatusOK, response.StatusCode)

	services := body["services"].(map[string]any)
	assertions.Len(services, 2)
	assertions.Equal("healthy", services["tenant-svc"].(map[string]any)["status"])

	response, body = f.do(t, http.MethodGet, "/api/health/history/tenant-svc", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("tenant-svc", body["service"])
	assertions.Equal("dev", body["environment"])
	assertions.Len(body["history"], 1)

	response, body = f.do(t, http.MethodGet, "/api/health/history/tenant-svc?env=prod", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Empty(body["history"])

	response, _ = f.do(t, http.MethodGet, "/api/health/history/tenant-svc?env=qa", "")
	assertions.Equal(http.StatusBadRequest, response.StatusCode)
}

func TestForcedCheck_CollapsesWhileRunning(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	require.True(t, f.server.checkGate.TryEnter(context.Background()))
	defer f.server.checkGate.Leave(context.Background())

	response, body := f.do(t, http.MethodPost, "/api/health/check", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Empty(body["services"])
}

func TestSwitchEnvironment(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	f.scheduler.CheckNow(context.Background())

	response, body := f.do(t, http.MethodPost, "/api/environment/switch", `{"environment":"QA"}`)
	assertions.Equal(http.StatusBadRequest, response.StatusCode)
	assertions.Contains(body["error"], "invalid environment")
	assertions.Equal(registry.EnvironmentDev, f.registry.CurrentEnvironment())
	assertions.Len(f.scheduler.History("tenant-svc", "", 0), 1)

	response, _ = f.do(t, http.MethodPost, "/api/environment/switch", `{}`)
	assertions.Equal(http.StatusBadRequest, response.StatusCode)

	response, body = f.do(t, http.MethodPost, "/api/environment/switch", `{"environment":"prod"}`)
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal(true, body["success"])
	assertions.Equal("PROD", body["environment"])
	assertions.Equal(registry.EnvironmentProd, f.registry.CurrentEnvironment())
	assertions.Equal(registry.EnvironmentProd, f.scheduler.Snapshot().Environment)
	assertions.Empty(f.scheduler.History("tenant-svc", registry.EnvironmentDev, 0))
}

func TestSwitchEnvironment_Concurrent(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		var target = []string{"DEV", "PROD"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			request := httptest.NewRequest(http.MethodPost, "/api/environment/switch", strings.NewReader(`{"environment":"`+target+`"}`))
			request.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.TestToken)
			request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			response, err := f.server.App().Test(request, 5000)
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, response.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, f.registry.CurrentEnvironment(), f.scheduler.Snapshot().Environment)
}

func TestGetEnvironment(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/api/environment", "")

	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("DEV", body["current"])
	assertions.Equal([]any{"DEV", "PROD"}, body["available"])
	assertions.Len(body["services"], 2)
}

func TestEndToEnd(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	var tableCount = 12
	f.checker.On("Check", config.Current.Databases["dev"]).
		Return(verify.DatabaseRecord{Status: healthcheck.StatusHealthy, TableCount: &tableCount})

	response, body := f.do(t, http.MethodGet, "/api/health/e2e/dev", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("dev", body["environment"])

	summary := body["summary"].(map[string]any)
	assertions.Equal(float64(2), summary["totalServices"])
	assertions.Equal(float64(2), summary["healthyServices"])
	assertions.Equal(true, summary["databaseConnected"])
	assertions.Equal(true, summary["allHealthy"])

	response, body = f.do(t, http.MethodGet, "/api/health/e2e?env=DEV", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("dev", body["environment"])
}

func TestEndToEnd_InvalidEnvironment(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	for _, path := range []string{"/api/health/e2e/qa", "/api/health/service-db/qa", "/api/environment/database/qa"} {
		response, body := f.do(t, http.MethodGet, path, "")
		assertions.Equal(http.StatusBadRequest, response.StatusCode, path)
		assertions.Contains(body["error"], "invalid environment", path)
	}
	f.checker.AssertNotCalled(t, "Check", mock.Anything)
}

func TestDatabase(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	f.checker.On("Check", config.Current.Databases["dev"]).
		Return(verify.DatabaseRecord{Status: healthcheck.StatusHealthy, Host: "localhost"})

	response, body := f.do(t, http.MethodGet, "/api/environment/database", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("healthy", body["status"])

	// no database is configured for prod, so the checker is never asked
	response, body = f.do(t, http.MethodGet, "/api/environment/database/all", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("healthy", body["dev"].(map[string]any)["status"])
	assertions.Equal("not_configured", body["prod"].(map[string]any)["status"])
}

func TestMonitoredDatabases(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)
	f.scheduler.MonitorDatabases(f.server.deps.Verifier)

	f.checker.On("Check", config.Current.Databases["dev"]).
		Return(verify.DatabaseRecord{Status: healthcheck.StatusHealthy, Host: "localhost"})

	response, body := f.do(t, http.MethodPost, "/api/health/check", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("healthy", body["databases"].(map[string]any)["dev"].(map[string]any)["status"])

	response, body = f.do(t, http.MethodGet, "/api/health/databases", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("localhost", body["dev"].(map[string]any)["host"])

	response, body = f.do(t, http.MethodGet, "/api/health/databases/history/DEV", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("dev", body["environment"])
	assertions.Len(body["history"], 1)

	response, body = f.do(t, http.MethodGet, "/api/health/databases/history/prod", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Empty(body["history"])

	response, _ = f.do(t, http.MethodGet, "/api/health/databases/history/qa", "")
	assertions.Equal(http.StatusBadRequest, response.StatusCode)
}

func TestStatistics(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	f.stats.On("Summary").Return(stats.Summary{Today: 4, TodayErrors: 1, TodayErrorRate: 20}, nil)
	f.stats.On("TopEndpoints", 3).Return([]stats.EndpointCount{}, errors.New("relation does not exist"))
	f.stats.On("Hourly", 24).Return([]stats.HourlyPoint{{Hour: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Requests: 2, Errors: 1}}, nil)
	f.stats.On("Connected").Return(true)

	response, body := f.do(t, http.MethodGet, "/api/metrics/summary", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal(float64(4), body["today"])
	assertions.Equal(float64(20), body["todayErrorRate"])

	request := httptest.NewRequest(http.MethodGet, "/api/metrics/top-endpoints?limit=3", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.TestToken)
	response, err := f.server.App().Test(request)
	require.NoError(t, err)
	raw, _ := io.ReadAll(response.Body)
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.JSONEq(`[]`, string(raw))

	request = httptest.NewRequest(http.MethodGet, "/api/metrics/hourly?hours=-5", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.TestToken)
	response, err = f.server.App().Test(request)
	require.NoError(t, err)
	raw, _ = io.ReadAll(response.Body)
	assertions.JSONEq(`[{"hour":"2024-01-01T10:00:00Z","requests":2,"errors":1}]`, string(raw))

	response, body = f.do(t, http.MethodGet, "/api/metrics/db-status", "")
	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal(true, body["connected"])
}

func TestStatistics_RequestRange(t *testing.T) {
	f := newFixture(t)

	var from = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var to = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f.stats.On("Requests", mock.MatchedBy(from.Equal), mock.MatchedBy(to.Equal)).Return([]stats.RequestCount{}, nil)

	response, _ := f.do(t, http.MethodGet, "/api/metrics/requests?from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00Z", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	f.stats.AssertExpectations(t)
}

func TestStatistics_Disabled(t *testing.T) {
	f := newFixture(t)
	f.server.deps.Stats = nil

	response, body := f.do(t, http.MethodGet, "/api/metrics/db-status", "")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, false, body["connected"])
}

func TestInfo(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/api/info", "")

	assertions.Equal(http.StatusOK, response.StatusCode)
	assertions.Equal("Bulwark Observability Dashboard", body["name"])
	assertions.Equal("DEV", body["environment"])
	assertions.Len(body["services"], 2)
}

func TestLogStatus_WithoutTailer(t *testing.T) {
	f := newFixture(t)
	f.server.deps.Sources = []logs.Source{{Service: "tenant-svc", Path: "/var/log/tenant.log"}}

	request := httptest.NewRequest(http.MethodGet, "/api/logs/status", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.TestToken)
	response, err := f.server.App().Test(request)
	require.NoError(t, err)

	raw, _ := io.ReadAll(response.Body)
	assert.JSONEq(t, `[{"service":"tenant-svc","path":"/var/log/tenant.log","active":false}]`, string(raw))
}

func TestRecentLogs_CapsLines(t *testing.T) {
	var assertions = assert.New(t)
	f := newFixture(t)

	path := filepath.Join(t.TempDir(), "tenant.log")
	require.NoError(t, os.WriteFile(path, []byte("info: started\nERROR: boom\n"), 0o644))
	f.server.deps.Sources = []logs.Source{{Service: "tenant-svc", Path: path}}

	request := httptest.NewRequest(http.MethodGet, "/api/logs/recent?lines=1000000000000", nil)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.TestToken)
	response, err := f.server.App().Test(request)
	require.NoError(t, err)
	assertions.Equal(http.StatusOK, response.StatusCode)

	var events []logs.Event
	require.NoError(t, json.NewDecoder(response.Body).Decode(&events))
	assertions.Len(events, 2)
	assertions.Equal("ERROR: boom", events[1].Raw)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	f := newFixture(t)

	response, _ := f.send(t, httptest.NewRequest(http.MethodGet, "/ws/health", nil))
	assert.Equal(t, http.StatusUpgradeRequired, response.StatusCode)
}

func TestUnknownApiRoute(t *testing.T) {
	f := newFixture(t)

	response, body := f.do(t, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "API endpoint not found", body["error"])

	response, body = f.send(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "API endpoint not found", body["error"])
}
