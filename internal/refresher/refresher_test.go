package refresher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/entropool/internal/mixer"
	"github.com/mrz1836/entropool/internal/pool"
)

var errRefreshFailed = errors.New("refresh failed")

type mockLogger struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func (l *mockLogger) Debug(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, format)
}

func (l *mockLogger) Error(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, format)
}

func (l *mockLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// recordingTarget records the order of refreshed indices.
type recordingTarget struct {
	mu         sync.Mutex
	buffers    int
	refreshed  []pool.Index
	refreshErr error
}

func (r *recordingTarget) Buffers() int { return r.buffers }

func (r *recordingTarget) Claim(_ context.Context, _ pool.Index) error { return nil }

func (r *recordingTarget) Refresh(idx pool.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refreshErr != nil {
		return r.refreshErr
	}
	r.refreshed = append(r.refreshed, idx)
	return nil
}

func (r *recordingTarget) Release(_ pool.Index) error { return nil }

func (r *recordingTarget) order() []pool.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pool.Index(nil), r.refreshed...)
}

func newPool(t *testing.T, buffers int) *pool.Pool {
	t.Helper()
	g := mixer.State{
		Data:     mixer.NewWyhash(1),
		Internal: mixer.NewWyhash(2),
		Selector: mixer.NewWyhash(3),
		Wide:     mixer.NewXoshiro256([4]uint64{4, 5, 6, 7}),
	}
	p, err := pool.New(pool.Config{Buffers: buffers, RowWords: pool.DefaultRowWords}, &g)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestNew_DefaultInterval(t *testing.T) {
	t.Parallel()
	d := New(&recordingTarget{buffers: 1}, 0, &mockLogger{})
	assert.Equal(t, DefaultInterval, d.Interval())
	assert.False(t, d.Running())
}

func TestDaemon_RoundRobin(t *testing.T) {
	t.Parallel()
	target := &recordingTarget{buffers: 3}
	d := New(target, time.Millisecond, &mockLogger{})

	d.Start(context.Background())
	require.Eventually(t, func() bool { return d.Refreshed() >= 7 }, 2*time.Second, time.Millisecond)
	d.Stop()

	order := target.order()
	require.GreaterOrEqual(t, len(order), 7)
	for i, idx := range order {
		assert.Equal(t, pool.Index(i%3), idx, "refresh %d", i)
	}
}

func TestDaemon_RefreshesRealPool(t *testing.T) {
	t.Parallel()
	p := newPool(t, 4)
	d := New(p, time.Millisecond, &mockLogger{})

	d.Start(context.Background())
	require.Eventually(t, func() bool { return d.Refreshed() >= 8 }, 2*time.Second, time.Millisecond)
	d.Stop()

	assert.GreaterOrEqual(t, p.Stats().Refreshes, uint64(8))
	assert.Equal(t, 0, p.Stats().Busy, "daemon releases every buffer it claims")
}

func TestDaemon_WaitsForHeldBuffer(t *testing.T) {
	t.Parallel()
	p := newPool(t, 1)

	idx, err := p.Acquire()
	require.NoError(t, err)

	d := New(p, time.Millisecond, &mockLogger{})
	d.Start(context.Background())
	defer d.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint64(0), d.Refreshed(), "held buffer is not refreshed under its reader")

	require.NoError(t, p.Release(idx))
	require.Eventually(t, func() bool { return d.Refreshed() > 0 }, 2*time.Second, time.Millisecond)
}

func TestDaemon_StopIsPrompt(t *testing.T) {
	t.Parallel()
	d := New(&recordingTarget{buffers: 2}, DefaultInterval, &mockLogger{})
	d.Start(context.Background())
	assert.True(t, d.Running())

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the sleep")
	}
	assert.False(t, d.Running())
	assert.Equal(t, uint64(0), d.Refreshed(), "first refresh waits a full interval")
}

func TestDaemon_ParentContextCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	d := New(&recordingTarget{buffers: 2}, DefaultInterval, &mockLogger{})
	d.Start(ctx)
	cancel()

	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon ignored parent cancellation")
	}
	d.Stop()
}

func TestDaemon_StopWithoutStart(t *testing.T) {
	t.Parallel()
	d := New(&recordingTarget{buffers: 1}, time.Second, &mockLogger{})
	assert.NotPanics(t, d.Stop)
	assert.NotPanics(t, d.Stop)
}

func TestDaemon_StartTwice(t *testing.T) {
	t.Parallel()
	target := &recordingTarget{buffers: 1}
	d := New(target, DefaultInterval, &mockLogger{})
	d.Start(context.Background())
	d.Start(context.Background())
	d.Stop()
	assert.False(t, d.Running())
}

func TestDaemon_LogsRefreshErrors(t *testing.T) {
	t.Parallel()
	logger := &mockLogger{}
	target := &recordingTarget{buffers: 2, refreshErr: errRefreshFailed}
	d := New(target, time.Millisecond, logger)

	d.Start(context.Background())
	require.Eventually(t, func() bool { return logger.ErrorCount() >= 2 }, 2*time.Second, time.Millisecond)
	d.Stop()

	assert.Equal(t, uint64(0), d.Refreshed())
}
