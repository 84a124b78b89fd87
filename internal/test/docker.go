// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

//go:build testing

package test

import (
	"context"
	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/database"
	"strconv"
	"time"
)

type Options struct {
	Postgres bool
}

var (
	pool     *dockertest.Pool
	postgres *dockertest.Resource

	// Postgres points to the database started by SetupDocker.
	Postgres config.Database
)

func SetupDocker(opts *Options) {
	var err error
	pool, err = dockertest.NewPool("")
	if err != nil {
		log.Fatal().Err(err).Msg("Could not construct docker pool")
	}
	pool.MaxWait = 2 * time.Minute

	if err = pool.Client.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Could not connect to docker")
	}

	if opts.Postgres {
		setupPostgres()
	}
}

func setupPostgres() {
	var err error
	postgres, err = pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        EnvOrDefault("POSTGRES_TAG", "16-alpine"),
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=bulwark",
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start postgres")
	}
	_ = postgres.Expire(300)

	port, _ := strconv.Atoi(postgres.GetPort("5432/tcp"))
	Postgres = config.Database{
		Host:     EnvOrDefault("DOCKER_HOST_ADDRESS", "localhost"),
		Port:     port,
		Database: "bulwark",
		User:     "postgres",
		Password: "postgres",
		SslMode:  "disable",
	}

	if err = pool.Retry(func() error {
		conn, err := pgx.Connect(context.Background(), database.ConnString(Postgres))
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())
		return conn.Ping(context.Background())
	}); err != nil {
		log.Fatal().Err(err).Msg("Could not connect to postgres")
	}
}

func TeardownDocker() {
	if postgres != nil {
		if err := pool.Purge(postgres); err != nil {
			log.Error().Err(err).Msg("Could not purge postgres")
		}
	}
}
