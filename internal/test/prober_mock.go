// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"github.com/stretchr/testify/mock"
	"observability-dashboard/internal/healthcheck"
)

type ProberMock struct {
	mock.Mock
}

func (p *ProberMock) Probe(ctx context.Context, target healthcheck.Target) healthcheck.Outcome {
	args := p.Called(ctx, target)
	return args.Get(0).(healthcheck.Outcome)
}

func (p *ProberMock) ProbePath(ctx context.Context, target healthcheck.Target, path string) healthcheck.Outcome {
	args := p.Called(ctx, target, path)
	return args.Get(0).(healthcheck.Outcome)
}

func (p *ProberMock) Url(target healthcheck.Target, path string) string {
	args := p.Called(target, path)
	return args.String(0)
}
