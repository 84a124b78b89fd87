// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"io"
	"net"
	"net/http"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/registry"
	"strings"
	"syscall"
	"time"
)

const (
	HealthPath         = "/health"
	DatabaseHealthPath = "/health/db"

	maxPayloadSize = 64 * 1024
)

// Prober performs timed HTTP health requests against local ports and remote URLs.
type Prober struct {
	Client        *http.Client
	LocalHost     string
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
}

func NewProber(monitor config.Monitor) *Prober {
	var prober = &Prober{
		Client:        &http.Client{},
		LocalHost:     monitor.LocalHost,
		LocalTimeout:  monitor.LocalTimeout,
		RemoteTimeout: monitor.RemoteTimeout,
	}

	if prober.LocalHost == "" {
		prober.LocalHost = "localhost"
	}
	if prober.LocalTimeout <= 0 {
		prober.LocalTimeout = 3 * time.Second
	}
	if prober.RemoteTimeout <= 0 {
		prober.RemoteTimeout = 10 * time.Second
	}
	return prober
}

// Probe checks the /health endpoint of a target.
func (p *Prober) Probe(ctx context.Context, target Target) Outcome {
	return p.ProbePath(ctx, target, HealthPath)
}

// ProbePath checks an arbitrary path of a target. Failures are always reported inside the outcome.
func (p *Prober) ProbePath(ctx context.Context, target Target, path string) Outcome {
	if !target.Configured() {
		return Outcome{
			Status:    StatusNotConfigured,
			Target:    target,
			LastCheck: time.Now(),
			ErrorKind: ErrorKindNotConfigured,
		}
	}

	var url = p.Url(target, path)

	ctx, cancel := context.WithTimeout(ctx, p.timeout(target))
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{
			Status:    StatusUnhealthy,
			Target:    target,
			LastCheck: time.Now(),
			Error:     fmt.Sprintf("failed to create request for URL %s: %v", url, err),
			ErrorKind: ErrorKindNetworkError,
		}
	}
	request.Header.Set("Accept", "application/json")

	log.Debug().Msgf("Performing health request for url %s", url)

	start := time.Now()
	response, err := p.Client.Do(request)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		kind, message := classifyError(err, p.timeout(target))
		log.Debug().Err(err).Msgf("Health request for url %s failed", url)
		return Outcome{
			Status:       StatusUnhealthy,
			Target:       target,
			ResponseTime: &elapsed,
			LastCheck:    time.Now(),
			Error:        message,
			ErrorKind:    kind,
		}
	}
	defer response.Body.Close()

	var outcome = Outcome{
		Status:       StatusHealthy,
		Target:       target,
		ResponseTime: &elapsed,
		StatusCode:   response.StatusCode,
		LastCheck:    time.Now(),
		Data:         readPayload(response.Body),
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		outcome.Status = StatusDegraded
		outcome.Error = fmt.Sprintf("unexpected status code: %d", response.StatusCode)
		outcome.ErrorKind = ErrorKindHttpError
	}

	return outcome
}

// Url returns the address a probe of the given path would request.
func (p *Prober) Url(target Target, path string) string {
	if target.Kind == registry.EndpointLocal {
		return fmt.Sprintf("http://%s:%d%s", p.LocalHost, target.Port, path)
	}
	return strings.TrimRight(target.Url, "/") + path
}

func (p *Prober) timeout(target Target) time.Duration {
	if target.Kind == registry.EndpointLocal {
		return p.LocalTimeout
	}
	return p.RemoteTimeout
}

func classifyError(err error, timeout time.Duration) (ErrorKind, string) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ErrorKindTimeout, fmt.Sprintf("timeout of %s exceeded", timeout)
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorKindConnectionRefused, "ECONNREFUSED"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorKindNetworkError, fmt.Sprintf("ENOTFOUND %s", dnsErr.Name)
	}
	return ErrorKindNetworkError, err.Error()
}

func readPayload(body io.Reader) any {
	raw, err := io.ReadAll(io.LimitReader(body, maxPayloadSize))
	if err != nil || len(raw) == 0 {
		return nil
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}
