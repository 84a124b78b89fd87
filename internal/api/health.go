// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/history"
	"observability-dashboard/internal/registry"
	"observability-dashboard/internal/verify"
)

type HistoryResponse struct {
	Service     string          `json:"service"`
	Environment string          `json:"environment"`
	History     []history.Entry `json:"history"`
}

type DatabaseHistoryResponse struct {
	Environment string                  `json:"environment"`
	History     []verify.DatabaseRecord `json:"history"`
}

func (s *Server) getHealth(ctx *fiber.Ctx) error {
	environment, err := s.optionalEnvironment(ctx.Query("env"))
	if err != nil {
		return err
	}

	var snapshot = s.deps.Scheduler.Snapshot()
	return ctx.JSON(s.deps.Scheduler.Scope(snapshot, environment))
}

func (s *Server) getHistory(ctx *fiber.Ctx) error {
	environment, err := s.optionalEnvironment(ctx.Query("env"))
	if err != nil {
		return err
	}
	if environment == "" {
		environment = s.deps.Registry.CurrentEnvironment()
	}

	var service = ctx.Params("service")
	return ctx.JSON(HistoryResponse{
		Service:     service,
		Environment: environment.Key(),
		History:     s.deps.Scheduler.History(service, environment, historyLimit()),
	})
}

// getDatabases returns the latest monitored database record per environment.
func (s *Server) getDatabases(ctx *fiber.Ctx) error {
	return ctx.JSON(s.deps.Scheduler.Snapshot().Databases)
}

func (s *Server) getDatabaseHistory(ctx *fiber.Ctx) error {
	environment, err := s.deps.Registry.Parse(ctx.Params("env"))
	if err != nil {
		return err
	}

	return ctx.JSON(DatabaseHistoryResponse{
		Environment: environment.Key(),
		History:     s.deps.Scheduler.DatabaseHistory(environment, historyLimit()),
	})
}

// postCheck forces a tick. While a forced tick is running, further requests get the latest snapshot.
func (s *Server) postCheck(ctx *fiber.Ctx) error {
	if !s.checkGate.TryEnter(ctx.UserContext()) {
		log.Debug().Msg("Forced health check already running, answering with the latest snapshot")
		return ctx.JSON(s.deps.Scheduler.Snapshot())
	}
	defer s.checkGate.Leave(ctx.UserContext())

	return ctx.JSON(s.deps.Scheduler.CheckNow(ctx.UserContext()))
}

func (s *Server) getEndToEnd(ctx *fiber.Ctx) error {
	var name = environmentParam(ctx)
	if name == "" {
		return ctx.JSON(s.deps.Verifier.EndToEndAll(ctx.UserContext()))
	}

	result, err := s.deps.Verifier.EndToEnd(ctx.UserContext(), name)
	if err != nil {
		return err
	}
	return ctx.JSON(result)
}

func (s *Server) getServiceDatabase(ctx *fiber.Ctx) error {
	var name = environmentParam(ctx)
	if name == "" {
		return ctx.JSON(s.deps.Verifier.ServiceDatabaseAll(ctx.UserContext()))
	}

	result, err := s.deps.Verifier.ServiceDatabase(ctx.UserContext(), name)
	if err != nil {
		return err
	}
	return ctx.JSON(result)
}

// optionalEnvironment parses an environment key. An empty key yields the empty environment.
func (s *Server) optionalEnvironment(name string) (registry.Environment, error) {
	if name == "" {
		return "", nil
	}
	return s.deps.Registry.Parse(name)
}

// environmentParam returns the environment of the path, falling back to the env query parameter.
func environmentParam(ctx *fiber.Ctx) string {
	if env := ctx.Params("env"); env != "" {
		return env
	}
	return ctx.Query("env")
}
