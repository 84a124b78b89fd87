// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"bytes"
	"context"
	"errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Second

type follower struct {
	source  Source
	file    *os.File
	offset  int64
	partial []byte
}

// Tailer follows log files from their current end and reports every new line.
// Missing files are picked up once they appear, truncated files are read again from the start.
type Tailer struct {
	handler      Handler
	pollInterval time.Duration

	mu        sync.Mutex
	followers map[string]*follower
	watched   map[string]bool
	watcher   *fsnotify.Watcher

	cancel context.CancelFunc
	done   chan struct{}
}

func NewTailer(sources []Source, handler Handler) *Tailer {
	var followers = make(map[string]*follower, len(sources))
	for _, source := range sources {
		followers[filepath.Clean(source.Path)] = &follower{source: source}
	}

	return &Tailer{
		handler:      handler,
		pollInterval: defaultPollInterval,
		followers:    followers,
		watched:      make(map[string]bool),
	}
}

func (t *Tailer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.watcher = watcher
	for _, f := range t.followers {
		t.watch(f)
		if t.open(f, false) {
			log.Info().Msgf("Started tailing %s", f.source.Path)
		} else {
			log.Info().Msgf("Log file %s not found, waiting for it", f.source.Path)
		}
	}
	t.mu.Unlock()

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.run(ctx)

	return nil
}

func (t *Tailer) Stop() {
	if t.cancel == nil {
		return
	}

	t.cancel()
	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range t.followers {
		t.close(f)
	}
	if err := t.watcher.Close(); err != nil {
		log.Debug().Err(err).Msg("Could not close log watcher")
	}
	t.cancel = nil
	log.Info().Msg("Stopped tailing log files")
}

// Status reports which sources are currently followed.
func (t *Tailer) Status() []SourceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	var statuses = make([]SourceStatus, 0, len(t.followers))
	for _, f := range t.followers {
		statuses = append(statuses, SourceStatus{Service: f.source.Service, Path: f.source.Path, Active: f.file != nil})
	}
	sortStatuses(statuses)
	return statuses
}

func (t *Tailer) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.mu.Lock()
			t.handleEvent(event)
			t.mu.Unlock()

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Log watcher failed")
			t.handler.HandleTailerError(TailerError{Error: err.Error()})

		case <-ticker.C:
			t.mu.Lock()
			for _, f := range t.followers {
				if f.file == nil {
					t.watch(f)
					t.open(f, true)
				} else {
					t.read(f)
				}
			}
			t.mu.Unlock()
		}
	}
}

func (t *Tailer) handleEvent(event fsnotify.Event) {
	f, ok := t.followers[filepath.Clean(event.Name)]
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		log.Debug().Msgf("Log file %s was moved away", f.source.Path)
		t.close(f)
	case event.Has(fsnotify.Create):
		t.close(f)
		t.open(f, true)
	case event.Has(fsnotify.Write):
		if f.file == nil {
			t.open(f, true)
		} else {
			t.read(f)
		}
	}
}

// watch registers the directory of a source. Directories that do not exist yet are retried on the next poll.
func (t *Tailer) watch(f *follower) {
	var dir = filepath.Dir(f.source.Path)
	if t.watched[dir] {
		return
	}

	if err := t.watcher.Add(dir); err != nil {
		log.Debug().Err(err).Msgf("Could not watch directory %s", dir)
		return
	}
	t.watched[dir] = true
}

// open starts following a file either from its beginning or from its current end.
func (t *Tailer) open(f *follower, fromStart bool) bool {
	file, err := os.Open(f.source.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.fail(f, err)
		}
		return false
	}

	f.file = file
	f.offset = 0
	f.partial = nil

	if !fromStart {
		info, err := file.Stat()
		if err != nil {
			t.fail(f, err)
			t.close(f)
			return false
		}
		f.offset = info.Size()
		return true
	}

	t.read(f)
	return true
}

func (t *Tailer) close(f *follower) {
	if f.file == nil {
		return
	}
	_ = f.file.Close()
	f.file = nil
	f.partial = nil
}

func (t *Tailer) read(f *follower) {
	info, err := f.file.Stat()
	if err != nil {
		t.fail(f, err)
		t.close(f)
		return
	}

	if info.Size() < f.offset {
		log.Debug().Msgf("Log file %s was truncated", f.source.Path)
		f.offset = 0
		f.partial = nil
	}
	if info.Size() == f.offset {
		return
	}

	chunk, err := io.ReadAll(io.NewSectionReader(f.file, f.offset, info.Size()-f.offset))
	if err != nil {
		t.fail(f, err)
		return
	}
	f.offset += int64(len(chunk))

	var data = append(f.partial, chunk...)
	var now = time.Now()
	for {
		index := bytes.IndexByte(data, '\n')
		if index < 0 {
			break
		}

		line := string(bytes.TrimRight(data[:index], "\r"))
		data = data[index+1:]
		if len(bytes.TrimSpace([]byte(line))) > 0 {
			t.handler.HandleLog(NewEvent(f.source, line, now))
		}
	}
	f.partial = append([]byte(nil), data...)
}

func (t *Tailer) fail(f *follower, err error) {
	log.Error().Err(err).Msgf("Could not tail %s", f.source.Path)
	t.handler.HandleTailerError(TailerError{Service: f.source.Service, Error: err.Error()})
}
