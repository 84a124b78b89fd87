// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/utils"
	"strconv"
)

var (
	probeDuration *prometheus.HistogramVec
	probeOutcomes *prometheus.CounterVec
	serviceUp     *prometheus.GaugeVec
	serviceUptime *prometheus.GaugeVec
	subscribers   *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec

	registry *prometheus.Registry
)

const namespace = "dashboard"

func init() {
	probeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "probe_duration_seconds",
		Help:      "The duration of health probes.",
		Namespace: namespace,
		Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service", "environment", "kind"})

	probeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "probe_outcomes_total",
		Help:      "The amount of health probes by resulting status.",
		Namespace: namespace,
	}, []string{"service", "environment", "kind", "status"})

	serviceUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "service_up",
		Help:      "Whether a service was reachable during the last check.",
		Namespace: namespace,
	}, []string{"service", "environment"})

	serviceUptime = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "service_uptime_percent",
		Help:      "The uptime of a service over its rolling history.",
		Namespace: namespace,
	}, []string{"service", "environment"})

	subscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "websocket_subscribers",
		Help:      "The amount of connected websocket subscribers.",
		Namespace: namespace,
	}, []string{"channel"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "http_requests_total",
		Help:      "The amount of handled http requests.",
		Namespace: namespace,
	}, []string{"method", "route", "code"})

	registry = prometheus.NewRegistry()
	registry.MustRegister(probeDuration, probeOutcomes, serviceUp, serviceUptime, subscribers, httpRequests)
}

func RecordProbe(service string, environment string, outcome healthcheck.Outcome) {
	if !config.Current.Metrics.Enabled {
		return
	}

	var kind = string(outcome.Target.Kind)
	probeOutcomes.With(prometheus.Labels{
		"service":     service,
		"environment": environment,
		"kind":        kind,
		"status":      string(outcome.Status),
	}).Inc()

	if outcome.ResponseTime != nil {
		probeDuration.With(prometheus.Labels{
			"service":     service,
			"environment": environment,
			"kind":        kind,
		}).Observe(float64(*outcome.ResponseTime) / 1000)
	}
}

func RecordServiceStatus(service string, environment string, status healthcheck.Status, uptime float64) {
	if !config.Current.Metrics.Enabled {
		return
	}

	var labels = prometheus.Labels{"service": service, "environment": environment}
	serviceUp.With(labels).Set(float64(utils.IfThenElse(status.Up(), 1, 0)))
	serviceUptime.With(labels).Set(uptime)
}

func DeleteService(service string, environment string) {
	var labels = prometheus.Labels{"service": service, "environment": environment}
	serviceUp.Delete(labels)
	serviceUptime.Delete(labels)
}

func SetSubscribers(channel string, count int) {
	if !config.Current.Metrics.Enabled {
		return
	}
	subscribers.With(prometheus.Labels{"channel": channel}).Set(float64(count))
}

func recordRequest(method string, route string, code int) {
	if !config.Current.Metrics.Enabled {
		return
	}
	httpRequests.With(prometheus.Labels{
		"method": method,
		"route":  route,
		"code":   strconv.Itoa(code),
	}).Inc()
}
