// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// LoaderFunc builds a fresh Dataset from its source.
type LoaderFunc func(ctx context.Context) (*Dataset, error)

// Watcher polls the dataset source file and rebuilds the Dataset when it
// changes. Every rebuild recomputes the wide view and vintage table.
type Watcher struct {
	mu        sync.RWMutex
	path      string
	load      LoaderFunc
	interval  time.Duration
	lastMod   time.Time
	current   *Dataset
	listeners []func(*Dataset)
	onError   []func(error)
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher loads the dataset once and returns a watcher on path.
// The initial load error is returned as is; later reload errors are logged
// and the previous Dataset is kept.
func NewWatcher(ctx context.Context, path string, load LoaderFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		load:     load,
		interval: 5 * time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	ds, err := load(ctx)
	if err != nil {
		return nil, err
	}
	w.current = ds
	return w, nil
}

// WatchCSV is NewWatcher for a CSV file.
func WatchCSV(ctx context.Context, path string, dsOpts []Option, opts ...WatcherOption) (*Watcher, error) {
	return NewWatcher(ctx, path, func(context.Context) (*Dataset, error) {
		return LoadCSV(path, dsOpts...)
	}, opts...)
}

// WatchSQLite is NewWatcher for a file-backed SQLite database.
func WatchSQLite(ctx context.Context, dsn, table string, dsOpts []Option, opts ...WatcherOption) (*Watcher, error) {
	return NewWatcher(ctx, fileOf(dsn), func(ctx context.Context) (*Dataset, error) {
		return LoadSQLite(ctx, dsn, table, dsOpts...)
	}, opts...)
}

// Dataset returns the current dataset.
func (w *Watcher) Dataset() *Dataset {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked with every reloaded dataset.
func (w *Watcher) OnChange(fn func(*Dataset)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// OnError registers a callback invoked with every failed reload. The
// previous dataset stays current.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = append(w.onError, fn)
}

// Start begins polling. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop stops polling and waits for the loop to exit. Start must have been called.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.changed() {
				w.reload(ctx)
			}
		}
	}
}

func (w *Watcher) changed() bool {
	if w.path == "" {
		return false
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if info.ModTime().After(w.lastMod) {
		w.lastMod = info.ModTime()
		return true
	}
	return false
}

func (w *Watcher) reload(ctx context.Context) {
	w.logger.Info("dataset changed, reloading", "path", w.path)

	ds, err := w.load(ctx)
	if err != nil {
		w.logger.Error("failed to reload dataset", "path", w.path, "error", err)
		w.mu.RLock()
		handlers := append(([]func(error))(nil), w.onError...)
		w.mu.RUnlock()
		for _, fn := range handlers {
			fn(err)
		}
		return
	}

	w.mu.Lock()
	w.current = ds
	listeners := make([]func(*Dataset), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info("dataset reloaded",
		"observations", ds.Len(),
		"stores", len(ds.Stores()),
		"dropped", ds.Report().Dropped())

	for _, fn := range listeners {
		fn(ds)
	}
}
