// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"observability-dashboard/internal/registry"
	"path/filepath"
	"strings"
	"time"
)

type Level string

const (
	LevelAll   Level = "all"
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

type Parsed struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Event struct {
	Service     string    `json:"service"`
	DisplayName string    `json:"displayName,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Raw         string    `json:"raw"`
	Parsed      Parsed    `json:"parsed"`
}

type TailerError struct {
	Service string `json:"service"`
	Error   string `json:"error"`
}

// Handler receives the lines and failures of a tailer.
type Handler interface {
	HandleLog(event Event)
	HandleTailerError(err TailerError)
}

type Source struct {
	Service     string `json:"service"`
	DisplayName string `json:"displayName"`
	Path        string `json:"path"`
}

type SourceStatus struct {
	Service string `json:"service"`
	Path    string `json:"path"`
	Active  bool   `json:"active"`
}

// Classify derives the level of a raw log line.
func Classify(line string) Level {
	var lower = strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error"), strings.Contains(lower, "err:"):
		return LevelError
	case strings.Contains(lower, "warn"):
		return LevelWarn
	case strings.Contains(lower, "debug"):
		return LevelDebug
	}
	return LevelInfo
}

func NewEvent(source Source, line string, timestamp time.Time) Event {
	return Event{
		Service:     source.Service,
		DisplayName: source.DisplayName,
		Timestamp:   timestamp,
		Raw:         line,
		Parsed:      Parsed{Level: Classify(line), Message: line},
	}
}

// SourcesFor collects the log files of every descriptor. A file shared by several environments is tailed once.
func SourcesFor(services []registry.ServiceDescriptor, environments []registry.Environment) []Source {
	var sources []Source
	var seen = make(map[string]bool)

	for _, service := range services {
		for _, environment := range environments {
			path := service.Endpoint(environment).LogFile
			if path == "" {
				continue
			}

			if absolute, err := filepath.Abs(path); err == nil {
				path = absolute
			}
			if seen[path] {
				continue
			}
			seen[path] = true
			sources = append(sources, Source{Service: service.Name, DisplayName: service.DisplayName, Path: path})
		}
	}
	return sources
}
