// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewPrometheusMiddleware() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// RequestCounter counts every handled request by method, matched route and status code.
func RequestCounter() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()

		var code = ctx.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		recordRequest(ctx.Method(), ctx.Route().Path, code)
		return err
	}
}
