// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package registry

import "strings"

type Environment string

const (
	EnvironmentDev     Environment = "DEV"
	EnvironmentProd    Environment = "PROD"
	EnvironmentStaging Environment = "STAGING"
	EnvironmentHotfix  Environment = "HOTFIX"
)

// Key returns the lower-case form used in response bodies and query parameters.
func (e Environment) Key() string {
	return strings.ToLower(string(e))
}

type EndpointKind string

const (
	EndpointLocal EndpointKind = "local"
	EndpointAws   EndpointKind = "aws"
)

// EndpointKinds lists every kind of endpoint a service may expose, in probe order.
var EndpointKinds = []EndpointKind{EndpointLocal, EndpointAws}

type Endpoint struct {
	LocalPort int    `json:"localPort,omitempty"`
	AwsUrl    string `json:"awsUrl,omitempty"`
	LogFile   string `json:"logFile,omitempty"`
}

// Configured reports whether the endpoint exposes a target of the given kind.
func (e Endpoint) Configured(kind EndpointKind) bool {
	switch kind {
	case EndpointLocal:
		return e.LocalPort > 0
	case EndpointAws:
		return e.AwsUrl != ""
	}
	return false
}

type ServiceDescriptor struct {
	Name        string                   `json:"name"`
	DisplayName string                   `json:"displayName"`
	Endpoints   map[Environment]Endpoint `json:"endpoints"`
}

// Endpoint returns the endpoint of the descriptor in an environment. The zero value means nothing is configured.
func (d ServiceDescriptor) Endpoint(environment Environment) Endpoint {
	return d.Endpoints[environment]
}

// HasEndpoint reports whether any target is configured in the environment.
func (d ServiceDescriptor) HasEndpoint(environment Environment) bool {
	endpoint := d.Endpoint(environment)
	for _, kind := range EndpointKinds {
		if endpoint.Configured(kind) {
			return true
		}
	}
	return false
}

// State is an immutable view of the active environment and its descriptors.
type State struct {
	Environment Environment
	Services    []ServiceDescriptor
}

// ServiceNames returns the names of the descriptors in order.
func (s *State) ServiceNames() []string {
	var names = make([]string, 0, len(s.Services))
	for _, service := range s.Services {
		names = append(names, service.Name)
	}
	return names
}
