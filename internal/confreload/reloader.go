// Package confreload hot-reloads the pipeline/router document: when
// the watched file changes, it rebuilds a RunnerFactory and swaps it
// in atomically for the *next* claimed file. A build failure is
// logged and the previous factory is kept — reload is fail-safe, not
// fail-fatal, since the process is already running.
package confreload

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Build constructs a RunnerFactory-shaped value from the document at
// path. The concrete return type is left to the caller (it's
// builder.Runner/monitors.RunnerFactory in practice); Reloader only
// needs to store and hand back whatever Build produces.
type Build func(path string) (interface{}, error)

// Reloader watches a single config file and rebuilds on write events.
type Reloader struct {
	path    string
	build   Build
	logger  *logrus.Logger
	current atomic.Value
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New builds the initial factory synchronously (a failure here is
// fatal, matching ConfigError semantics at startup) and prepares a
// watcher that will be started by Start.
func New(path string, build Build, logger *logrus.Logger) (*Reloader, error) {
	initial, err := build(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	r := &Reloader{path: path, build: build, logger: logger, watcher: watcher, done: make(chan struct{})}
	r.current.Store(initial)
	return r, nil
}

// Current returns the most recently built value. Safe for concurrent
// use while Start's watch loop is running.
func (r *Reloader) Current() interface{} {
	return r.current.Load()
}

// Start begins watching the config file's directory (fsnotify does
// not reliably watch single files across editor rename-replace
// saves) and rebuilds on any Write or Create event for the watched
// path.
func (r *Reloader) Start() error {
	dir := parentDir(r.path)
	if err := r.watcher.Add(dir); err != nil {
		return err
	}
	go r.loop()
	return nil
}

func (r *Reloader) loop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.reload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.WithError(err).Warn("confreload: watcher error")
		case <-r.done:
			return
		}
	}
}

func (r *Reloader) reload() {
	next, err := r.build(r.path)
	if err != nil {
		r.logger.WithError(err).Error("confreload: rebuild failed, keeping previous pipeline")
		return
	}
	r.current.Store(next)
	r.logger.Info("confreload: pipeline reloaded")
}

// Stop closes the watcher and stops the loop goroutine.
func (r *Reloader) Stop() error {
	close(r.done)
	return r.watcher.Close()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
