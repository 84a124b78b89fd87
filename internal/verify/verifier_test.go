// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"errors"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"net/http"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/credentials"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/registry"
	"sync"
	"syscall"
	"testing"
	"time"
)

type databaseCheckerMock struct {
	mock.Mock
}

func (d *databaseCheckerMock) Check(ctx context.Context, db config.Database) DatabaseRecord {
	args := d.Called(db)
	return args.Get(0).(DatabaseRecord)
}

var devDatabase = config.Database{Host: "dev-db.local", Port: 5432, Database: "bulwark"}

func testServices() []config.Service {
	var service = func(name string, url string) config.Service {
		return config.Service{
			Name:         name,
			Environments: map[string]config.Endpoint{"dev": {AwsUrl: url}},
		}
	}

	return []config.Service{
		service("config-svc", "https://config.example.com"),
		service("tenant-svc", "https://tenant.example.com"),
		service("admin-svc", "https://admin.example.com"),
		{Name: "report-svc", Environments: map[string]config.Endpoint{"prod": {AwsUrl: "https://report.example.com"}}},
	}
}

func newTestVerifier(t *testing.T, checker DatabaseChecker) *Verifier {
	prober := healthcheck.NewProber(config.Monitor{RemoteTimeout: 500 * time.Millisecond})
	httpmock.ActivateNonDefault(prober.Client)
	t.Cleanup(httpmock.DeactivateAndReset)

	catalogue, err := registry.New(testServices(), []string{"DEV", "PROD"}, "DEV")
	require.NoError(t, err)

	databases := credentials.DatabaseSource{Fallback: map[string]config.Database{"dev": devDatabase}}
	return NewVerifier(prober, checker, databases, catalogue, config.Verifier{Timeout: 2 * time.Second, MaxConcurrent: 2})
}

func healthyRecord(tableCount int) DatabaseRecord {
	var responseTime int64 = 4
	var now = time.Now()
	return DatabaseRecord{
		Status:       healthcheck.StatusHealthy,
		Host:         devDatabase.Host,
		Database:     devDatabase.Database,
		TableCount:   &tableCount,
		ServerTime:   &now,
		ResponseTime: &responseTime,
	}
}

func registerHealthy(urls ...string) {
	for _, url := range urls {
		httpmock.RegisterResponder(http.MethodGet, url+"/health", httpmock.NewStringResponder(http.StatusOK, `{"status":"ok"}`))
	}
}

func TestEndToEnd_AllHealthy(t *testing.T) {
	var assertions = assert.New(t)

	checker := new(databaseCheckerMock)
	checker.On("Check", devDatabase).Return(healthyRecord(12))
	verifier := newTestVerifier(t, checker)
	registerHealthy("https://config.example.com", "https://tenant.example.com", "https://admin.example.com")

	result, err := verifier.EndToEnd(context.Background(), "dev")
	require.NoError(t, err)

	assertions.Equal("dev", result.Environment)
	assertions.Len(result.Services, 4)
	assertions.Equal(3, result.Summary.TotalServices)
	assertions.Equal(3, result.Summary.HealthyServices)
	assertions.True(result.Summary.DatabaseConnected)
	assertions.True(result.Summary.AllHealthy)
	assertions.Equal(12, *result.Database.TableCount)
	assertions.Equal(healthcheck.StatusNotConfigured, result.Services[3].Status)
	assertions.Equal(3, httpmock.GetTotalCallCount())
}

func TestEndToEnd_DatabaseUnreachable(t *testing.T) {
	var assertions = assert.New(t)

	checker := new(databaseCheckerMock)
	checker.On("Check", devDatabase).Return(DatabaseRecord{
		Status:    healthcheck.StatusUnhealthy,
		Host:      devDatabase.Host,
		Error:     "connection refused",
		ErrorKind: healthcheck.ErrorKindDatabaseUnreachable,
	})
	verifier := newTestVerifier(t, checker)
	registerHealthy("https://config.example.com", "https://tenant.example.com")
	httpmock.RegisterResponder(http.MethodGet, "https://admin.example.com/health", httpmock.NewErrorResponder(syscall.ECONNREFUSED))

	result, err := verifier.EndToEnd(context.Background(), "DEV")
	require.NoError(t, err)

	assertions.Equal(healthcheck.StatusUnhealthy, result.Database.Status)
	assertions.Equal(healthcheck.ErrorKindDatabaseUnreachable, result.Database.ErrorKind)
	assertions.False(result.Summary.DatabaseConnected)
	assertions.False(result.Summary.AllHealthy)
	assertions.Equal(2, result.Summary.HealthyServices)

	for _, service := range result.Services {
		assertions.Len(service.Endpoints, 2)
	}
	assertions.Equal(healthcheck.StatusUnhealthy, result.Services[2].Status)
	assertions.Equal(healthcheck.ErrorKindConnectionRefused, result.Services[2].Endpoints[registry.EndpointAws].ErrorKind)
}

func TestEndToEnd_DatabaseNotConfigured(t *testing.T) {
	var assertions = assert.New(t)

	checker := new(databaseCheckerMock)
	verifier := newTestVerifier(t, checker)
	httpmock.RegisterResponder(http.MethodGet, "https://report.example.com/health", httpmock.NewStringResponder(http.StatusOK, ""))

	result, err := verifier.EndToEnd(context.Background(), "prod")
	require.NoError(t, err)

	assertions.Equal(healthcheck.StatusNotConfigured, result.Database.Status)
	assertions.Equal(1, result.Summary.TotalServices)
	assertions.Equal(1, result.Summary.HealthyServices)
	assertions.False(result.Summary.AllHealthy)
	checker.AssertNotCalled(t, "Check", mock.Anything)
}

func TestEndToEnd_InvalidEnvironment(t *testing.T) {
	verifier := newTestVerifier(t, new(databaseCheckerMock))

	_, err := verifier.EndToEnd(context.Background(), "qa")

	assert.ErrorIs(t, err, registry.ErrInvalidEnvironment)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestEndToEndAll(t *testing.T) {
	var assertions = assert.New(t)

	checker := new(databaseCheckerMock)
	checker.On("Check", devDatabase).Return(healthyRecord(3))
	verifier := newTestVerifier(t, checker)
	registerHealthy("https://config.example.com", "https://tenant.example.com", "https://admin.example.com", "https://report.example.com")

	results := verifier.EndToEndAll(context.Background())

	assertions.Len(results, 2)
	assertions.True(results["dev"].Summary.AllHealthy)
	assertions.False(results["prod"].Summary.DatabaseConnected)
}

func TestServiceDatabase(t *testing.T) {
	var assertions = assert.New(t)

	verifier := newTestVerifier(t, new(databaseCheckerMock))
	httpmock.RegisterResponder(http.MethodGet, "https://config.example.com/health/db",
		httpmock.NewStringResponder(http.StatusOK, `{"status":"ok","database":{"name":"bulwark","tableCount":12}}`))
	httpmock.RegisterResponder(http.MethodGet, "https://tenant.example.com/health/db",
		httpmock.NewStringResponder(http.StatusOK, `{"status":"unhealthy","database":"bulwark"}`))
	httpmock.RegisterResponder(http.MethodGet, "https://admin.example.com/health/db",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"status":"error"}`))

	result, err := verifier.ServiceDatabase(context.Background(), "dev")
	require.NoError(t, err)

	assertions.Equal(3, result.Summary.TotalServices)
	assertions.Equal(1, result.Summary.HealthyServices)
	assertions.False(result.Summary.AllHealthy)

	configSvc := result.Services[0]
	assertions.Equal(healthcheck.StatusHealthy, configSvc.Status)
	assertions.Equal("https://config.example.com/health/db", configSvc.Url)
	assertions.Equal("bulwark", configSvc.Database.Name)
	assertions.Equal(12, *configSvc.Database.TableCount)

	assertions.Equal(healthcheck.StatusUnhealthy, result.Services[1].Status)
	assertions.Equal(healthcheck.StatusDegraded, result.Services[2].Status)
	assertions.Equal(http.StatusServiceUnavailable, result.Services[2].StatusCode)
	assertions.Equal(healthcheck.StatusNotConfigured, result.Services[3].Status)
}

func TestDatabase(t *testing.T) {
	checker := new(databaseCheckerMock)
	checker.On("Check", devDatabase).Return(healthyRecord(7))
	verifier := newTestVerifier(t, checker)

	record, err := verifier.Database(context.Background(), "Dev")

	require.NoError(t, err)
	assert.True(t, record.Connected())

	_, err = verifier.Database(context.Background(), "qa")
	assert.ErrorIs(t, err, registry.ErrInvalidEnvironment)
}

// rendezvousChecker only reports healthy when every service probe started while it was running.
type rendezvousChecker struct {
	started chan struct{}
	probes  *sync.WaitGroup
}

func (r *rendezvousChecker) Check(ctx context.Context, db config.Database) DatabaseRecord {
	close(r.started)

	var probed = make(chan struct{})
	go func() {
		r.probes.Wait()
		close(probed)
	}()

	select {
	case <-probed:
		return healthyRecord(1)
	case <-time.After(time.Second):
		return DatabaseRecord{Status: healthcheck.StatusUnhealthy, Error: "service probes did not start"}
	}
}

func TestEndToEnd_ChecksServicesAndDatabaseConcurrently(t *testing.T) {
	var assertions = assert.New(t)

	var probes sync.WaitGroup
	probes.Add(3)
	checker := &rendezvousChecker{started: make(chan struct{}), probes: &probes}
	verifier := newTestVerifier(t, checker)

	for _, url := range []string{"https://config.example.com", "https://tenant.example.com", "https://admin.example.com"} {
		httpmock.RegisterResponder(http.MethodGet, url+"/health", func(request *http.Request) (*http.Response, error) {
			probes.Done()
			select {
			case <-checker.started:
				return httpmock.NewStringResponse(http.StatusOK, `{"status":"ok"}`), nil
			case <-time.After(time.Second):
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
			}
		})
	}

	result, err := verifier.EndToEnd(context.Background(), "dev")
	require.NoError(t, err)

	assertions.True(result.Summary.DatabaseConnected, result.Database.Error)
	assertions.Equal(3, result.Summary.HealthyServices)
	assertions.True(result.Summary.AllHealthy)
}

func TestEndToEndAll_KeepsEnvironmentsThatCouldNotRun(t *testing.T) {
	var assertions = assert.New(t)

	verifier := newTestVerifier(t, new(databaseCheckerMock))
	require.True(t, verifier.gate.TryEnter(context.Background()))
	require.True(t, verifier.gate.TryEnter(context.Background()))
	t.Cleanup(func() {
		verifier.gate.Leave(context.Background())
		verifier.gate.Leave(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := verifier.EndToEndAll(ctx)

	assertions.Len(results, 2)
	for _, environment := range []string{"dev", "prod"} {
		assertions.Equal(environment, results[environment].Environment)
		assertions.Equal(context.DeadlineExceeded.Error(), results[environment].Error)
	}
	assertions.Equal(0, httpmock.GetTotalCallCount())
}

func TestForEachEnvironment_PartialResults(t *testing.T) {
	var assertions = assert.New(t)

	var check = func(ctx context.Context, name string) (DatabaseRecord, error) {
		if name == string(registry.EnvironmentProd) {
			return DatabaseRecord{}, errors.New("credentials unavailable")
		}
		return healthyRecord(2), nil
	}
	var failed = func(environment string, err error) DatabaseRecord {
		return DatabaseRecord{Status: healthcheck.StatusUnknown, Error: err.Error()}
	}

	results := forEachEnvironment(context.Background(), []registry.Environment{registry.EnvironmentDev, registry.EnvironmentProd}, check, failed)

	assertions.True(results["dev"].Connected())
	assertions.Equal(healthcheck.StatusUnknown, results["prod"].Status)
	assertions.Equal("credentials unavailable", results["prod"].Error)
}
