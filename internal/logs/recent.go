// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"bytes"
	"errors"
	"github.com/rs/zerolog/log"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"
)

const (
	maxRecentBytes = 1 << 20

	// MaxRecentLines caps how many lines a single request may ask for.
	MaxRecentLines = 1000
)

// Recent returns the last lines of every source, optionally restricted to one service.
func Recent(sources []Source, lines int, service string) []Event {
	if lines <= 0 {
		return []Event{}
	}
	lines = min(lines, MaxRecentLines)

	var events []Event
	var now = time.Now()

	for _, source := range sources {
		if service != "" && source.Service != service {
			continue
		}

		tail, err := tailLines(source.Path, lines)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Error().Err(err).Msgf("Could not read %s", source.Path)
			}
			continue
		}

		for _, line := range tail {
			events = append(events, NewEvent(source, line, now))
		}
	}

	if len(events) > lines {
		events = events[len(events)-lines:]
	}
	if events == nil {
		return []Event{}
	}
	return events
}

// tailLines reads at most the last n non-empty lines of a file.
func tailLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	var offset = info.Size() - maxRecentBytes
	if offset < 0 {
		offset = 0
	}

	data, err := io.ReadAll(io.NewSectionReader(file, offset, info.Size()-offset))
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, raw := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		lines = append(lines, string(bytes.TrimRight(raw, "\r")))
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func sortStatuses(statuses []SourceStatus) {
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Service != statuses[j].Service {
			return statuses[i].Service < statuses[j].Service
		}
		return statuses[i].Path < statuses[j].Path
	})
}
