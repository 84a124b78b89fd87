// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/auth"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/credentials"
	"observability-dashboard/internal/database"
	"observability-dashboard/internal/healthcheck"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/verify"
)

const credentialsFromDatabase = "database"

// components holds everything the commands share. Pools are nil when their feature is disabled or unreachable.
type components struct {
	registry        *registry.Registry
	prober          *healthcheck.Prober
	verifier        *verify.Verifier
	credentialsPool *pgxpool.Pool
	loader          *credentials.Loader
}

func buildComponents(ctx context.Context) (*components, error) {
	catalogue, err := registry.NewFromConfig(&config.Current)
	if err != nil {
		return nil, err
	}

	c := &components{
		registry: catalogue,
		prober:   healthcheck.NewProber(config.Current.Monitor),
	}

	if config.Current.Security.CredentialsSource == credentialsFromDatabase {
		pool, err := database.Connect(ctx, config.Current.Security.CredentialsDatabase)
		if err != nil {
			log.Error().Err(err).Msg("Could not connect to the credential store, using configured credentials")
		} else {
			c.credentialsPool = pool
			c.loader = credentials.NewLoader(pool, config.Current.Security.CacheTtl)
		}
	}

	databases := credentials.DatabaseSource{Loader: c.loader, Fallback: config.Current.Databases}
	c.verifier = verify.NewVerifier(c.prober, verify.PostgresChecker{}, databases, catalogue, config.Current.Verifier)

	return c, nil
}

func (c *components) authSource() auth.Source {
	if c.loader != nil {
		return auth.NewDatabaseSource(c.loader)
	}
	return auth.NewConfigSource(config.Current.Security)
}

// monitoredEnvironments parses the additional environments to monitor. Unknown keys are skipped.
func (c *components) monitoredEnvironments() []registry.Environment {
	var environments []registry.Environment
	for _, name := range config.Current.Monitor.Environments {
		environment, err := c.registry.Parse(name)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring monitored environment")
			continue
		}
		environments = append(environments, environment)
	}
	return environments
}

func (c *components) close() {
	if c.credentialsPool != nil {
		c.credentialsPool.Close()
	}
}
