// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"observability-dashboard/internal/healthcheck"
	"time"
)

func HealthyOutcome(target healthcheck.Target, responseTime int64) healthcheck.Outcome {
	return healthcheck.Outcome{
		Status:       healthcheck.StatusHealthy,
		Target:       target,
		ResponseTime: &responseTime,
		StatusCode:   200,
		LastCheck:    time.Now(),
	}
}

func DegradedOutcome(target healthcheck.Target, statusCode int, responseTime int64) healthcheck.Outcome {
	return healthcheck.Outcome{
		Status:       healthcheck.StatusDegraded,
		Target:       target,
		ResponseTime: &responseTime,
		StatusCode:   statusCode,
		LastCheck:    time.Now(),
		ErrorKind:    healthcheck.ErrorKindHttpError,
	}
}

func RefusedOutcome(target healthcheck.Target) healthcheck.Outcome {
	var responseTime int64 = 1
	return healthcheck.Outcome{
		Status:       healthcheck.StatusUnhealthy,
		Target:       target,
		ResponseTime: &responseTime,
		LastCheck:    time.Now(),
		Error:        "ECONNREFUSED",
		ErrorKind:    healthcheck.ErrorKindConnectionRefused,
	}
}

func NotConfiguredOutcome(target healthcheck.Target) healthcheck.Outcome {
	return healthcheck.Outcome{
		Status:    healthcheck.StatusNotConfigured,
		Target:    target,
		LastCheck: time.Now(),
		ErrorKind: healthcheck.ErrorKindNotConfigured,
	}
}
