// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/credentials"
)

type User struct {
	Username    string `json:"username"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
}

type Credentials struct {
	Token string `json:"token"`
	Admin *User  `json:"admin"`
}

type Source interface {
	Credentials(ctx context.Context) (Credentials, error)
}

type configSource struct {
	credentials Credentials
}

// NewConfigSource uses the credentials of the security configuration. A random token is generated if none is set.
func NewConfigSource(security config.Security) Source {
	var token = security.Token
	if token == "" {
		token = uuid.NewString()
		log.Warn().Msg("No security token configured, generated a random one for this process")
	}

	var admin *User
	if security.Password != "" {
		admin = &User{Username: security.Username, Password: security.Password}
	} else {
		log.Warn().Msg("No security password configured, login is disabled")
	}

	return &configSource{credentials: Credentials{Token: token, Admin: admin}}
}

func (s *configSource) Credentials(context.Context) (Credentials, error) {
	return s.credentials, nil
}

type databaseSource struct {
	loader *credentials.Loader
}

// NewDatabaseSource reads the dashboard credentials from the GLOBAL row of app_credentials.
func NewDatabaseSource(loader *credentials.Loader) Source {
	return &databaseSource{loader: loader}
}

func (s *databaseSource) Credentials(ctx context.Context) (Credentials, error) {
	var attributes struct {
		Auth Credentials `json:"auth"`
	}

	if err := s.loader.Decode(ctx, credentials.EnvGlobal, credentials.ModuleDashboard, &attributes); err != nil {
		return Credentials{}, fmt.Errorf("could not load dashboard credentials: %w", err)
	}
	return attributes.Auth, nil
}
