// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"encoding/json"
	"observability-dashboard/internal/logs"
	"observability-dashboard/internal/monitor"
	"observability-dashboard/internal/registry"
	"strings"
	"time"
)

type Channel string

const (
	ChannelHealth Channel = "health"
	ChannelLogs   Channel = "logs"
)

const (
	EventStatus      = "status"
	EventLog         = "log"
	EventTailerError = "tailer-error"
	EventSubscribe   = "subscribe"
	EventFilter      = "filter"
)

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Scoper narrows a snapshot to an environment.
type Scoper interface {
	Scope(snapshot monitor.Snapshot, environment registry.Environment) monitor.Snapshot
}

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type incoming struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type filterUpdate struct {
	Search *string     `json:"search"`
	Level  *logs.Level `json:"level"`
}

// Filter is the log selection of a subscriber.
type Filter struct {
	Services map[string]bool `json:"-"`
	Search   string          `json:"search"`
	Level    logs.Level      `json:"level"`
}

func NewFilter(services []string) Filter {
	var filter = Filter{Services: make(map[string]bool, len(services)), Level: logs.LevelAll}
	for _, service := range services {
		filter.Services[service] = true
	}
	return filter
}

// Allows reports whether an event passes the filter. Events of unselected services, events not containing
// the search text and events of another level than the selected one are dropped.
func (f Filter) Allows(event logs.Event) bool {
	if !f.Services[event.Service] {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(event.Raw), strings.ToLower(f.Search)) {
		return false
	}
	if f.Level != "" && f.Level != logs.LevelAll && f.Level != event.Parsed.Level {
		return false
	}
	return true
}

func (f Filter) merge(update filterUpdate) Filter {
	if update.Search != nil {
		f.Search = *update.Search
	}
	if update.Level != nil {
		f.Level = *update.Level
	}
	return f
}

func (f Filter) withServices(services []string) Filter {
	f.Services = make(map[string]bool, len(services))
	for _, service := range services {
		f.Services[service] = true
	}
	return f
}
