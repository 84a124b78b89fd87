// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/utils"
)

const environmentLocal = "environment"

func (s *Server) registerWebSockets() {
	ws := s.app.Group("/ws", s.upgrade)
	ws.Get("/health", s.requireEnvironment, websocket.New(s.serveHealth))
	ws.Get("/logs", websocket.New(s.serveLogs))
}

// upgrade admits websocket upgrades from allowed origins carrying a valid token.
func (s *Server) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	var origins = config.Current.WebSocket.AllowedOrigins
	if origin := ctx.Get(fiber.HeaderOrigin); len(origins) > 0 && origin != "" && !utils.ContainsFold(origins, origin) {
		log.Warn().Msgf("Rejected websocket connection from origin %s", origin)
		return fiber.ErrForbidden
	}

	if config.Current.Security.Enabled {
		var token = ctx.Query("token")
		if token == "" {
			token = bearerToken(ctx)
		}
		if !s.deps.Auth.VerifyToken(ctx.UserContext(), token) {
			return fiber.ErrUnauthorized
		}
	}
	return ctx.Next()
}

func (s *Server) requireEnvironment(ctx *fiber.Ctx) error {
	environment, err := s.optionalEnvironment(ctx.Query("env"))
	if err != nil {
		return err
	}
	ctx.Locals(environmentLocal, environment)
	return ctx.Next()
}

func (s *Server) serveHealth(conn *websocket.Conn) {
	environment, _ := conn.Locals(environmentLocal).(registry.Environment)
	s.deps.Hub.ServeHealth(conn, environment, s.deps.Scheduler.Snapshot())
}

func (s *Server) serveLogs(conn *websocket.Conn) {
	s.deps.Hub.ServeLogs(conn)
}
