// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/stats"
	"time"
)

const (
	defaultRange    = 24 * time.Hour
	defaultEndpoint = 10
	defaultHours    = 24
)

// Statistics failures are logged and answered with empty data.

func (s *Server) getSummary(ctx *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return ctx.JSON(stats.Summary{})
	}

	summary, err := s.deps.Stats.Summary(ctx.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("Could not load request summary")
		return ctx.JSON(stats.Summary{})
	}
	return ctx.JSON(summary)
}

func (s *Server) getRequests(ctx *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return ctx.JSON([]stats.RequestCount{})
	}

	from, to := timeRange(ctx)
	requests, err := s.deps.Stats.Requests(ctx.UserContext(), from, to)
	if err != nil {
		log.Error().Err(err).Msg("Could not load request statistics")
		return ctx.JSON([]stats.RequestCount{})
	}
	return ctx.JSON(requests)
}

func (s *Server) getErrors(ctx *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return ctx.JSON([]stats.ErrorCount{})
	}

	from, to := timeRange(ctx)
	errs, err := s.deps.Stats.Errors(ctx.UserContext(), from, to)
	if err != nil {
		log.Error().Err(err).Msg("Could not load error statistics")
		return ctx.JSON([]stats.ErrorCount{})
	}
	return ctx.JSON(errs)
}

func (s *Server) getTopEndpoints(ctx *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return ctx.JSON([]stats.EndpointCount{})
	}

	endpoints, err := s.deps.Stats.TopEndpoints(ctx.UserContext(), positiveQueryInt(ctx, "limit", defaultEndpoint))
	if err != nil {
		log.Error().Err(err).Msg("Could not load top endpoints")
		return ctx.JSON([]stats.EndpointCount{})
	}
	return ctx.JSON(endpoints)
}

func (s *Server) getHourly(ctx *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return ctx.JSON([]stats.HourlyPoint{})
	}

	points, err := s.deps.Stats.Hourly(ctx.UserContext(), positiveQueryInt(ctx, "hours", defaultHours))
	if err != nil {
		log.Error().Err(err).Msg("Could not load hourly statistics")
		return ctx.JSON([]stats.HourlyPoint{})
	}
	return ctx.JSON(points)
}

func (s *Server) getStatsStatus(ctx *fiber.Ctx) error {
	var connected = s.deps.Stats != nil && s.deps.Stats.Connected(ctx.UserContext())
	return ctx.JSON(fiber.Map{"connected": connected})
}

// timeRange reads the RFC 3339 from and to query parameters. Missing or malformed values default to the last day.
func timeRange(ctx *fiber.Ctx) (time.Time, time.Time) {
	var to = time.Now()
	if parsed, err := time.Parse(time.RFC3339, ctx.Query("to")); err == nil {
		to = parsed
	}

	var from = to.Add(-defaultRange)
	if parsed, err := time.Parse(time.RFC3339, ctx.Query("from")); err == nil {
		from = parsed
	}
	return from, to
}

func positiveQueryInt(ctx *fiber.Ctx, key string, fallback int) int {
	if value := ctx.QueryInt(key, fallback); value > 0 {
		return value
	}
	return fallback
}
