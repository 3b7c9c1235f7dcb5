// Package refresher runs the background daemon that keeps idle pool buffers
// from going stale.
package refresher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrz1836/entropool/internal/pool"
)

// DefaultInterval is the pause between two background refreshes.
const DefaultInterval = 601 * time.Second

// Target is the pool surface the daemon drives.
type Target interface {
	Buffers() int
	Claim(ctx context.Context, idx pool.Index) error
	Refresh(idx pool.Index) error
	Release(idx pool.Index) error
}

// Logger is the interface for daemon logging.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Daemon refreshes one buffer per interval, round-robin over the pool.
type Daemon struct {
	target   Target
	interval time.Duration
	limiter  *rate.Limiter
	logger   Logger

	cursor    int
	refreshed atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a daemon. A non-positive interval selects DefaultInterval.
func New(target Target, interval time.Duration, logger Logger) *Daemon {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Daemon{
		target:   target,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		logger:   logger,
	}
}

// Interval returns the pause between refreshes.
func (d *Daemon) Interval() time.Duration {
	return d.interval
}

// Refreshed returns the number of refreshes the daemon has completed.
func (d *Daemon) Refreshed() uint64 {
	return d.refreshed.Load()
}

// Running reports whether the daemon goroutine is active.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done != nil
}

// Start launches the daemon goroutine. The first refresh happens one interval
// after Start. Calling Start on a running daemon does nothing.
func (d *Daemon) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done != nil {
		return
	}

	// Drain the initial burst token so the loop sleeps before its first pass.
	d.limiter.Allow()

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.run(ctx, d.done)

	d.logger.Debug("refresher started: interval=%s buffers=%d", d.interval, d.target.Buffers())
}

// Stop signals the daemon and waits for it to exit. Safe to call multiple
// times and on a daemon that was never started.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	d.logger.Debug("refresher stopped after %d refreshes", d.Refreshed())
}

func (d *Daemon) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		if err := d.step(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("background refresh failed: %v", err)
		}
	}
}

// step refreshes the buffer under the cursor and advances the cursor.
func (d *Daemon) step(ctx context.Context) error {
	idx := pool.Index(d.cursor)
	d.cursor++
	if d.cursor >= d.target.Buffers() {
		d.cursor = 0
	}

	if err := d.target.Claim(ctx, idx); err != nil {
		return err
	}
	err := d.target.Refresh(idx)
	if relErr := d.target.Release(idx); err == nil {
		err = relErr
	}
	if err != nil {
		return err
	}

	d.refreshed.Add(1)
	d.logger.Debug("refreshed buffer %d", idx)
	return nil
}
