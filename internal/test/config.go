// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"observability-dashboard/internal/config"
	"time"
)

const (
	TestToken    = "test-token"
	TestUsername = "admin"
	TestPassword = "s3cret"
)

func BuildTestConfig() config.Configuration {
	return config.Configuration{
		LogLevel:  "debug",
		Port:      8080,
		ApiPrefix: "/api",
		Environment: config.Environment{
			Default:   "DEV",
			Available: []string{"DEV", "PROD"},
		},
		Monitor: config.Monitor{
			Interval:      time.Second,
			LocalTimeout:  100 * time.Millisecond,
			RemoteTimeout: 200 * time.Millisecond,
			LocalHost:     "localhost",
			HistorySize:   100,
			HistoryLimit:  50,
		},
		Services: []config.Service{
			{
				Name:        "config-svc",
				DisplayName: "Config Service",
				Environments: map[string]config.Endpoint{
					"dev":  {LocalPort: 5001, AwsUrl: "https://config.dev.example.com"},
					"prod": {AwsUrl: "https://config.prod.example.com"},
				},
			},
			{
				Name:        "tenant-svc",
				DisplayName: "Tenant Service",
				Environments: map[string]config.Endpoint{
					"dev":  {LocalPort: 5002},
					"prod": {AwsUrl: "https://tenant.prod.example.com"},
				},
			},
		},
		Databases: map[string]config.Database{
			"dev": {
				Host:     EnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     5432,
				Database: "bulwark",
				User:     "postgres",
				Password: "postgres",
				SslMode:  "disable",
			},
		},
		Verifier: config.Verifier{
			Timeout:       time.Second,
			MaxConcurrent: 2,
		},
		Logs: config.Logs{
			Enabled:     true,
			RecentLines: 100,
		},
		WebSocket: config.WebSocket{
			SendBuffer: 8,
		},
		Security: config.Security{
			Enabled:           true,
			Username:          TestUsername,
			Password:          TestPassword,
			Token:             TestToken,
			CredentialsSource: "config",
			CacheTtl:          time.Minute,
		},
		Metrics: config.Metrics{
			Enabled: true,
		},
		Tracing: config.Tracing{
			CollectorEndpoint: "localhost:4318",
			Enabled:           false,
		},
	}
}
