package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

// Watcher re-checks a watchlist of indicators on an interval through a
// Recorder, so the result store keeps a detection history per indicator.
type Watcher struct {
	recorder    *Recorder
	watchlist   *frame.Table
	valueColumn string
	kindColumn  string
	interval    time.Duration
	onResult    func(*frame.Table)
	logger      *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. Empty column names use the batch defaults
// and a non-positive interval uses the default poll interval.
func NewWatcher(r *Recorder, watchlist *frame.Table, valueColumn, kindColumn string, interval time.Duration) (*Watcher, error) {
	if r == nil || watchlist == nil {
		return nil, errors.New("recorder and watchlist are required")
	}
	if valueColumn == "" {
		valueColumn = vt.DefaultValueColumn
	}
	if kindColumn == "" {
		kindColumn = vt.DefaultKindColumn
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		recorder:    r,
		watchlist:   watchlist,
		valueColumn: valueColumn,
		kindColumn:  kindColumn,
		interval:    interval,
		logger:      r.logger,
	}, nil
}

// OnResult registers a callback receiving each pass's results.
func (w *Watcher) OnResult(fn func(*frame.Table)) {
	w.mu.Lock()
	w.onResult = fn
	w.mu.Unlock()
}

// Start begins the periodic lookup loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// PullOnce looks up the whole watchlist immediately.
func (w *Watcher) PullOnce(ctx context.Context) (*frame.Table, error) {
	t, err := w.recorder.LookupMany(ctx, w.watchlist, w.valueColumn, w.kindColumn)
	if err != nil {
		return nil, fmt.Errorf("watchlist lookup failed: %w", err)
	}

	w.mu.Lock()
	fn := w.onResult
	w.mu.Unlock()
	if fn != nil {
		fn(t)
	}
	return t, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.PullOnce(ctx); err != nil {
				w.logger.Error("watch pass failed", "err", err)
			}
		}
	}
}
