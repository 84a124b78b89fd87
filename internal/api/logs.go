// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/gofiber/fiber/v2"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/logs"
)

const defaultRecentLines = 100

func (s *Server) getRecentLogs(ctx *fiber.Ctx) error {
	var fallback = config.Current.Logs.RecentLines
	if fallback <= 0 {
		fallback = defaultRecentLines
	}

	var lines = min(positiveQueryInt(ctx, "lines", fallback), logs.MaxRecentLines)
	return ctx.JSON(logs.Recent(s.deps.Sources, lines, ctx.Query("service")))
}

func (s *Server) getLogStatus(ctx *fiber.Ctx) error {
	if s.deps.Tailer != nil {
		return ctx.JSON(s.deps.Tailer.Status())
	}

	var statuses = make([]logs.SourceStatus, 0, len(s.deps.Sources))
	for _, source := range s.deps.Sources {
		statuses = append(statuses, logs.SourceStatus{Service: source.Service, Path: source.Path})
	}
	return ctx.JSON(statuses)
}
