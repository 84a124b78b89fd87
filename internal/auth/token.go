// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfigured      = errors.New("authentication is not configured")
)

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Token returns the bearer token handed out on login.
func (s *Service) Token(ctx context.Context) (string, error) {
	credentials, err := s.source.Credentials(ctx)
	if err != nil {
		return "", err
	}
	if credentials.Token == "" {
		return "", ErrNotConfigured
	}
	return credentials.Token, nil
}

// VerifyToken reports whether the token matches the current bearer token.
func (s *Service) VerifyToken(ctx context.Context, token string) bool {
	expected, err := s.Token(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not verify token")
		return false
	}
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// ValidateUser checks the given credentials against the admin user and returns it without its password.
func (s *Service) ValidateUser(ctx context.Context, username string, password string) (User, error) {
	credentials, err := s.source.Credentials(ctx)
	if err != nil {
		return User{}, err
	}

	var admin = credentials.Admin
	if admin == nil || admin.Username == "" {
		return User{}, ErrNotConfigured
	}

	if subtle.ConstantTimeCompare([]byte(username), []byte(admin.Username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(admin.Password)) != 1 {
		return User{}, ErrInvalidCredentials
	}

	var user = User{
		Username:    admin.Username,
		DisplayName: admin.DisplayName,
		Role:        admin.Role,
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if user.Role == "" {
		user.Role = "admin"
	}
	return user, nil
}
