// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/config"
)

type databaseAttributes struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	SslMode  string `json:"sslMode"`
}

// DatabaseSource resolves the database of an environment from app_credentials and falls back to the configuration.
type DatabaseSource struct {
	Loader   *Loader
	Fallback map[string]config.Database
}

func (s DatabaseSource) DatabaseFor(ctx context.Context, env string) (config.Database, bool) {
	if s.Loader != nil {
		var attributes databaseAttributes
		err := s.Loader.Decode(ctx, env, ModuleDatabase, &attributes)
		if err == nil && attributes.Host != "" {
			return config.Database{
				Host:     attributes.Host,
				Port:     attributes.Port,
				Database: attributes.Database,
				User:     attributes.User,
				Password: attributes.Password,
				SslMode:  attributes.SslMode,
			}, true
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msgf("Could not load database credentials of %s, using configuration", env)
		}
	}

	var fallback = config.Configuration{Databases: s.Fallback}
	return fallback.DatabaseFor(env)
}
