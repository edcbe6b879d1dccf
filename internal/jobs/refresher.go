// Package jobs runs the periodic background refresh: pull activity from
// GitHub, then re-scan the source tree for TODO quests.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RefreshFunc performs one refresh pass.
type RefreshFunc func(ctx context.Context) error

type RefresherOptions struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Refresher ticks at a fixed interval, invoking the refresh function once per
// tick. An interval of zero disables it entirely.
type Refresher struct {
	refresh  RefreshFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewRefresher(refresh RefreshFunc, opts RefresherOptions) *Refresher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		refresh:  refresh,
		interval: opts.Interval,
		logger:   logger,
	}
}

func (r *Refresher) Start(parent context.Context) error {
	if r == nil || r.refresh == nil {
		return fmt.Errorf("refresher is not configured")
	}
	if r.interval <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.started = true

	go r.run(ctx, done)
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	r.started = false
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()
	return nil
}

func (r *Refresher) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		if !sleepOrDone(ctx, r.interval) {
			return
		}

		start := time.Now()
		if err := r.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("background refresh failed", "error", err, "duration", time.Since(start))
			continue
		}
		r.logger.Debug("background refresh complete", "duration", time.Since(start))
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
