// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"strings"
)

var Current Configuration

func Load() {
	loadDotEnv()
	configureViper()
	setDefaults()
	Current = *readConfiguration()
}

func Initialize() error {
	configureViper()
	setDefaults()
	return viper.SafeWriteConfig()
}

// DatabaseFor returns the configured database of an environment. Keys are matched case-insensitively.
func (c *Configuration) DatabaseFor(environment string) (Database, bool) {
	for key, database := range c.Databases {
		if strings.EqualFold(key, environment) {
			return database, true
		}
	}
	return Database{}, false
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using process environment only")
	}
}

func configureViper() {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("dashboard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func setDefaults() {
	// General
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("port", 5100)
	viper.SetDefault("apiPrefix", "/api")

	// Environments
	viper.SetDefault("environment.default", "DEV")
	viper.SetDefault("environment.available", []string{"DEV", "PROD", "STAGING", "HOTFIX"})

	// Monitor
	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.localTimeout", "3s")
	viper.SetDefault("monitor.remoteTimeout", "10s")
	viper.SetDefault("monitor.localHost", "localhost")
	viper.SetDefault("monitor.historySize", 100)
	viper.SetDefault("monitor.historyLimit", 50)
	viper.SetDefault("monitor.databases", true)
	viper.SetDefault("monitor.environments", []string{})

	// Services
	viper.SetDefault("services", defaultServices())

	// Databases
	viper.SetDefault("databases.dev.host", "localhost")
	viper.SetDefault("databases.dev.port", 5432)
	viper.SetDefault("databases.dev.database", "bulwark")
	viper.SetDefault("databases.dev.user", "postgres")
	viper.SetDefault("databases.dev.password", "postgres")
	viper.SetDefault("databases.dev.sslMode", "disable")
	viper.SetDefault("databases.prod.host", "")
	viper.SetDefault("databases.prod.port", 5432)
	viper.SetDefault("databases.prod.database", "bulwark")
	viper.SetDefault("databases.prod.user", "postgres")
	viper.SetDefault("databases.prod.password", "")
	viper.SetDefault("databases.prod.sslMode", "require")

	// Verifier
	viper.SetDefault("verifier.timeout", "10s")
	viper.SetDefault("verifier.maxConcurrent", 4)

	// Request statistics
	viper.SetDefault("stats.enabled", true)
	viper.SetDefault("stats.database.host", "localhost")
	viper.SetDefault("stats.database.port", 5432)
	viper.SetDefault("stats.database.database", "bulwark")
	viper.SetDefault("stats.database.user", "postgres")
	viper.SetDefault("stats.database.password", "postgres")
	viper.SetDefault("stats.database.sslMode", "disable")

	// Logs
	viper.SetDefault("logs.enabled", true)
	viper.SetDefault("logs.recentLines", 100)

	// WebSocket
	viper.SetDefault("websocket.allowedOrigins", []string{})
	viper.SetDefault("websocket.sendBuffer", 64)

	// Security
	viper.SetDefault("security.enabled", true)
	viper.SetDefault("security.username", "admin")
	viper.SetDefault("security.password", "")
	viper.SetDefault("security.token", "")
	viper.SetDefault("security.credentialsSource", "config")
	viper.SetDefault("security.credentialsDatabase.host", "localhost")
	viper.SetDefault("security.credentialsDatabase.port", 5432)
	viper.SetDefault("security.credentialsDatabase.database", "bulwark")
	viper.SetDefault("security.credentialsDatabase.user", "postgres")
	viper.SetDefault("security.credentialsDatabase.password", "postgres")
	viper.SetDefault("security.credentialsDatabase.sslMode", "disable")
	viper.SetDefault("security.cacheTtl", "1m")

	// Metrics
	viper.SetDefault("metrics.enabled", true)

	// Tracing
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collectorEndpoint", "localhost:4318")
	viper.SetDefault("tracing.https", false)
}

func defaultServices() []map[string]any {
	var service = func(name string, displayName string, devUrl string, prodUrl string) map[string]any {
		return map[string]any{
			"name":        name,
			"displayName": displayName,
			"environments": map[string]any{
				"dev": map[string]any{
					"awsUrl":  devUrl,
					"logFile": "logs/" + name + ".log",
				},
				"prod": map[string]any{
					"awsUrl": prodUrl,
				},
			},
		}
	}

	return []map[string]any{
		service("config-svc", "Config Service", "https://bw-config-svc-dev.qntailab.com", "https://4ta9opnwt9.execute-api.ap-southeast-1.amazonaws.com/prod"),
		service("tenant-svc", "Tenant Service", "https://bw-tenant-svc-dev.qntailab.com", "https://9g2g5ho2xc.execute-api.ap-southeast-1.amazonaws.com/prod"),
		service("checkin-svc", "Checkin Service", "https://bw-checkin-svc-dev.qntailab.com", "https://dgv8508o0f.execute-api.ap-southeast-1.amazonaws.com/prod"),
		service("admin-svc", "Admin Service", "https://bw-admin-svc-dev.qntailab.com", "https://na0wmpn07l.execute-api.ap-southeast-1.amazonaws.com/prod"),
	}
}

func readConfiguration() *Configuration {
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			log.Info().Msg("Configuration file not found but environment variables will be taken into account!")
		} else {
			log.Warn().Err(err).Msg("Could not read configuration file")
		}
	}

	viper.AutomaticEnv()

	var config Configuration
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatal().Err(err).Msg("Could not unmarshal current configuration!")
	}

	return &config
}
