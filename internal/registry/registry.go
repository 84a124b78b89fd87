// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/utils"
	"strings"
	"sync"
)

var ErrInvalidEnvironment = errors.New("invalid environment")

// Registry maps the configured service catalogue onto the recognised environments
// and owns the currently active environment.
type Registry struct {
	mu           sync.RWMutex
	catalogue    []ServiceDescriptor
	environments []Environment
	current      *State
}

// New builds a registry from the configured services. The initial environment must be recognised.
func New(services []config.Service, available []string, initial string) (*Registry, error) {
	var environments = make([]Environment, 0, len(available))
	for _, name := range available {
		environment := Environment(strings.ToUpper(strings.TrimSpace(name)))
		if environment == "" || utils.Contains(environments, environment) {
			continue
		}
		environments = append(environments, environment)
	}

	if len(environments) == 0 {
		return nil, errors.New("no environments configured")
	}

	r := &Registry{
		catalogue:    buildCatalogue(services),
		environments: environments,
	}

	environment, err := r.Parse(initial)
	if err != nil {
		return nil, err
	}
	r.current = r.stateFor(environment)

	return r, nil
}

// NewFromConfig builds a registry from the global configuration.
func NewFromConfig(c *config.Configuration) (*Registry, error) {
	return New(c.Services, c.Environment.Available, c.Environment.Default)
}

// Parse resolves an environment key case-insensitively against the recognised environments.
func (r *Registry) Parse(name string) (Environment, error) {
	environment := Environment(strings.ToUpper(strings.TrimSpace(name)))
	if !utils.Contains(r.environments, environment) {
		return "", fmt.Errorf("%w: %q is not one of %v", ErrInvalidEnvironment, name, r.environments)
	}
	return environment, nil
}

// Environments returns the recognised environments in configuration order.
func (r *Registry) Environments() []Environment {
	return append([]Environment(nil), r.environments...)
}

// Current returns the active registry state.
func (r *Registry) Current() *State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Registry) CurrentEnvironment() Environment {
	return r.Current().Environment
}

// Services returns the ordered descriptors for an environment.
func (r *Registry) Services(name string) ([]ServiceDescriptor, error) {
	environment, err := r.Parse(name)
	if err != nil {
		return nil, err
	}
	return r.stateFor(environment).Services, nil
}

// Service looks up a single descriptor of the catalogue by name.
func (r *Registry) Service(name string) (ServiceDescriptor, bool) {
	for _, descriptor := range r.catalogue {
		if descriptor.Name == name {
			return descriptor, true
		}
	}
	return ServiceDescriptor{}, false
}

// Switch activates another environment and returns the new state.
// The active state is left untouched when the environment is not recognised.
func (r *Registry) Switch(name string) (*State, error) {
	environment, err := r.Parse(name)
	if err != nil {
		return nil, err
	}

	state := r.stateFor(environment)

	r.mu.Lock()
	r.current = state
	r.mu.Unlock()

	return state, nil
}

func (r *Registry) stateFor(environment Environment) *State {
	return &State{
		Environment: environment,
		Services:    append([]ServiceDescriptor(nil), r.catalogue...),
	}
}

func buildCatalogue(services []config.Service) []ServiceDescriptor {
	var catalogue = make([]ServiceDescriptor, 0, len(services))
	for _, service := range services {
		descriptor := ServiceDescriptor{
			Name:        service.Name,
			DisplayName: service.DisplayName,
			Endpoints:   make(map[Environment]Endpoint, len(service.Environments)),
		}
		if descriptor.DisplayName == "" {
			descriptor.DisplayName = service.Name
		}

		for key, endpoint := range service.Environments {
			descriptor.Endpoints[Environment(strings.ToUpper(key))] = Endpoint{
				LocalPort: endpoint.LocalPort,
				AwsUrl:    strings.TrimRight(endpoint.AwsUrl, "/"),
				LogFile:   endpoint.LogFile,
			}
		}

		catalogue = append(catalogue, descriptor)
	}
	return catalogue
}
