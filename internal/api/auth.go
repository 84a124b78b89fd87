// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/auth"
	"observability-dashboard/internal/config"
	"strings"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) postLogin(ctx *fiber.Ctx) error {
	var request loginRequest
	if err := ctx.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid login request")
	}

	user, err := s.deps.Auth.ValidateUser(ctx.UserContext(), request.Username, request.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("Login failed")
		}
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid credentials"})
	}

	token, err := s.deps.Auth.Token(ctx.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("Could not issue token")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid credentials"})
	}

	log.Info().Msgf("User %s logged in", user.Username)
	return ctx.JSON(fiber.Map{"success": true, "token": token, "user": user})
}

func (s *Server) getVerify(ctx *fiber.Ctx) error {
	if !s.deps.Auth.VerifyToken(ctx.UserContext(), bearerToken(ctx)) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false})
	}
	return ctx.JSON(fiber.Map{"valid": true})
}

func postLogout(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"success": true})
}

// requireToken rejects requests without a valid bearer token when security is enabled.
func (s *Server) requireToken(ctx *fiber.Ctx) error {
	if !config.Current.Security.Enabled {
		return ctx.Next()
	}

	if !s.deps.Auth.VerifyToken(ctx.UserContext(), bearerToken(ctx)) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	return ctx.Next()
}

func bearerToken(ctx *fiber.Ctx) string {
	var header = ctx.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
