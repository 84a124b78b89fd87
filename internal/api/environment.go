// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/registry"
	"strings"
)

type EnvironmentResponse struct {
	Current   registry.Environment         `json:"current"`
	Available []registry.Environment       `json:"available"`
	Services  []registry.ServiceDescriptor `json:"services"`
}

type SwitchRequest struct {
	Environment string `json:"environment"`
}

type SwitchResponse struct {
	Success     bool                         `json:"success"`
	Environment registry.Environment         `json:"environment"`
	Services    []registry.ServiceDescriptor `json:"services"`
	Message     string                       `json:"message"`
}

func (s *Server) getEnvironment(ctx *fiber.Ctx) error {
	var state = s.deps.Registry.Current()
	return ctx.JSON(EnvironmentResponse{
		Current:   state.Environment,
		Available: s.deps.Registry.Environments(),
		Services:  state.Services,
	})
}

// postSwitch activates another environment and restarts monitoring for it.
func (s *Server) postSwitch(ctx *fiber.Ctx) error {
	var request SwitchRequest
	if err := ctx.BodyParser(&request); err != nil || strings.TrimSpace(request.Environment) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Environment is required")
	}

	state, err := s.switchEnvironment(request.Environment)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected environment switch")
		return err
	}

	log.Info().Msgf("Switched to environment %s", state.Environment)
	return ctx.JSON(SwitchResponse{
		Success:     true,
		Environment: state.Environment,
		Services:    state.Services,
		Message:     fmt.Sprintf("Switched to %s environment", state.Environment),
	})
}

func (s *Server) switchEnvironment(name string) (*registry.State, error) {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	state, err := s.deps.Registry.Switch(name)
	if err != nil {
		return nil, err
	}

	s.deps.Scheduler.Apply(state)
	if s.deps.Scheduler.Running() {
		s.deps.Scheduler.Restart()
	}
	return state, nil
}

// getDatabase checks the database of the environment in the path, or of the active one.
func (s *Server) getDatabase(ctx *fiber.Ctx) error {
	var name = ctx.Params("env")
	if name == "" {
		name = string(s.deps.Registry.CurrentEnvironment())
	}

	record, err := s.deps.Verifier.Database(ctx.UserContext(), name)
	if err != nil {
		return err
	}
	return ctx.JSON(record)
}

func (s *Server) getDatabaseAll(ctx *fiber.Ctx) error {
	return ctx.JSON(s.deps.Verifier.DatabaseAll(ctx.UserContext()))
}
