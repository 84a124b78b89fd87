// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"context"
	"fmt"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"observability-dashboard/internal/config"
)

const serviceName = "observability-dashboard"

var provider *sdktrace.TracerProvider

func initTracer() error {
	exporterOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Current.Tracing.CollectorEndpoint),
	}

	if !config.Current.Tracing.Https {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(exporterOpts...))
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String(serviceName))))

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader)))
	return nil
}

// Middleware starts a server span per request when tracing is enabled.
func Middleware() fiber.Handler {
	if !config.Current.Tracing.Enabled {
		return passThrough
	}

	if err := initTracer(); err != nil {
		log.Error().Err(err).Msg("Tracing disabled")
		return passThrough
	}

	return serverSpans()
}

func serverSpans(options ...otelfiber.Option) fiber.Handler {
	options = append([]otelfiber.Option{otelfiber.WithCollectClientIP(false)}, options...)
	return otelfiber.Middleware(options...)
}

func passThrough(ctx *fiber.Ctx) error {
	return ctx.Next()
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) {
	if provider == nil {
		return
	}
	if err := provider.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not flush traces")
	}
}
