// Package engine composes the buffer pool, the refresh daemon and the stream
// cipher into the read path served to consumers.
package engine

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mrz1836/entropool/internal/chacha"
	"github.com/mrz1836/entropool/internal/metrics"
	"github.com/mrz1836/entropool/internal/pool"
	"github.com/mrz1836/entropool/internal/refresher"
	"github.com/mrz1836/entropool/internal/seed"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Engine owns every piece of generator state. Create it once with Initialize
// and stop it with Shutdown.
type Engine struct {
	policy   Policy
	pool     *pool.Pool
	daemon   *refresher.Daemon
	staging  *stagingPool
	counters *metrics.Counters
	logger   Logger

	// readers caps concurrent reads at the pool size.
	readers    *semaphore.Weighted
	maxReaders int64

	cipherMu sync.Mutex
	cipher   *chacha.Cipher
	rounds   int
	rekeys   int

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// Initialize seeds an engine from material, populates the pool and starts
// the background daemon.
func Initialize(material seed.Material, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if !o.policy.Valid() {
		return nil, poolerr.WithDetails(poolerr.ErrInvalidPolicy, map[string]string{
			"policy": strconv.Itoa(int(o.policy)),
		})
	}
	if !chacha.ValidRounds(o.rounds) {
		return nil, poolerr.WithDetails(poolerr.ErrInvalidRounds, map[string]string{
			"rounds": strconv.Itoa(o.rounds),
		})
	}
	if o.stagingFastMax < 0 {
		o.stagingFastMax = 0
	}

	seeds, err := seed.Expand(material)
	if err != nil {
		return nil, err
	}
	defer seed.Zero(seeds.Key[:])

	gen := seeds.Mixer
	p, err := pool.New(o.pool, &gen)
	if err != nil {
		return nil, err
	}
	if lockErr := p.LockError(); lockErr != nil {
		o.logger.Warn("locked memory unavailable, pool uses heap memory: %v", lockErr)
	}

	c, err := chacha.New(seeds.Key, seeds.Nonce, 0, o.rounds)
	if err != nil {
		p.Close()
		return nil, err
	}

	counters := o.counters
	if counters == nil {
		counters = metrics.New()
	}

	e := &Engine{
		policy:     o.policy,
		pool:       p,
		daemon:     refresher.New(p, o.interval, o.logger),
		staging:    newStagingPool(o.stagingFastMax),
		counters:   counters,
		logger:     o.logger,
		readers:    semaphore.NewWeighted(int64(p.Buffers())),
		maxReaders: int64(p.Buffers()),
		cipher:     c,
		rounds:     o.rounds,
	}

	if o.daemon {
		e.daemon.Start(context.Background())
	}

	e.logger.Debug("engine initialized: policy=%s buffers=%d row_words=%d rounds=%d memory=%s",
		e.policy, p.Buffers(), p.RowWords(), o.rounds, p.Stats().Memory)

	return e, nil
}

// Policy returns the engine's output policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Counters returns the engine's counters. Session facades record opens and
// closes here.
func (e *Engine) Counters() *metrics.Counters {
	return e.counters
}

// Closed reports whether Shutdown has been called.
func (e *Engine) Closed() bool {
	return e.closed.Load()
}

// Read returns exactly n freshly generated bytes.
func (e *Engine) Read(n int) ([]byte, error) {
	return e.ReadContext(context.Background(), n)
}

// ReadContext is Read with a context that bounds the wait for a reader slot.
// Once bytes are being produced the read runs to completion.
func (e *Engine) ReadContext(ctx context.Context, n int) ([]byte, error) {
	if n < 0 {
		return nil, poolerr.WithDetails(poolerr.ErrInvalidInput, map[string]string{
			"count": strconv.Itoa(n),
		})
	}
	if e.closed.Load() {
		return nil, poolerr.ErrShutdown
	}
	if n == 0 {
		return []byte{}, nil
	}

	out := make([]byte, n)
	if err := e.serve(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadInto fills p with generated bytes.
func (e *Engine) ReadInto(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, poolerr.ErrShutdown
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := e.serve(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// serve fills dst from the pool one buffer at a time and applies the policy.
func (e *Engine) serve(ctx context.Context, dst []byte) (err error) {
	start := time.Now()
	n := len(dst)
	chunks := (n + pool.PayloadBytes - 1) / pool.PayloadBytes
	defer func() {
		e.counters.RecordRead(n, chunks, time.Since(start), err)
	}()

	if err := e.readers.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.readers.Release(1)

	if e.closed.Load() {
		return poolerr.ErrShutdown
	}

	st := e.staging.get(chunks * pool.PayloadBytes)
	defer e.staging.put(st)

	for c := 0; c < chunks; c++ {
		if err := e.consume(st.b[c*pool.PayloadBytes:]); err != nil {
			return err
		}
	}

	if e.policy == PolicyWhitened {
		e.whiten(st.b[:n])
	}
	copy(dst, st.b[:n])

	return nil
}

// consume copies one buffer's payload into dst, refreshing it under
// PolicyFast before it is released. It waits for a free buffer without a
// deadline: a started read is never abandoned halfway.
func (e *Engine) consume(dst []byte) error {
	idx, err := e.pool.AcquireWait(context.Background())
	if err != nil {
		return err
	}

	e.pool.CopyPayload(dst, idx)

	if e.policy == PolicyFast {
		if err := e.pool.Refresh(idx); err != nil {
			_ = e.pool.Release(idx)
			return err
		}
	}
	return e.pool.Release(idx)
}

// whiten XORs b with the running keystream. A wrapped block counter is a
// soft limit: the cipher is rekeyed from fresh seed material.
func (e *Engine) whiten(b []byte) {
	e.cipherMu.Lock()
	defer e.cipherMu.Unlock()

	e.cipher.Apply(b)

	if e.cipher.Wrapped() {
		e.logger.Warn("cipher block counter wrapped after %d rekeys, rekeying", e.rekeys)
		if err := e.rekeyLocked(); err != nil {
			e.logger.Error("cipher rekey failed: %v", err)
		}
	}
}

// rekeyLocked replaces the cipher with one keyed from fresh material.
// Callers hold cipherMu.
func (e *Engine) rekeyLocked() error {
	material, err := seed.Gather(seed.DefaultSize)
	if err != nil {
		return err
	}
	defer seed.Zero(material)

	seeds, err := seed.Expand(material)
	if err != nil {
		return err
	}
	defer seed.Zero(seeds.Key[:])

	c, err := chacha.New(seeds.Key, seeds.Nonce, 0, e.rounds)
	if err != nil {
		return err
	}

	e.cipher.Destroy()
	e.cipher = c
	e.rekeys++
	return nil
}

// DiscardWrite accepts and discards p. Written bytes never reach generator
// state.
func (e *Engine) DiscardWrite(p []byte) int {
	e.counters.RecordDiscard(len(p))
	return len(p)
}

// Status returns a snapshot of counters and pool state.
func (e *Engine) Status() metrics.Status {
	s := e.counters.Snapshot()
	ps := e.pool.Stats()

	s.Policy = e.policy.String()
	s.Buffers = ps.Buffers
	s.BusyBuffers = ps.Busy
	s.Refreshes = ps.Refreshes
	s.Memory = ps.Memory.String()
	s.DaemonRefreshes = e.daemon.Refreshed()
	s.RefreshIntervalMs = e.daemon.Interval().Milliseconds()

	e.cipherMu.Lock()
	s.CipherRounds = e.cipher.Rounds()
	s.CipherBlocks = e.cipher.Counter()
	e.cipherMu.Unlock()

	return s
}

// Shutdown stops the daemon, waits for in-flight reads and releases pool
// memory. Reads after Shutdown return ErrShutdown. Safe to call multiple
// times.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.closed.Store(true)
		e.daemon.Stop()

		// Every reader holds one slot; taking all of them drains the read path.
		_ = e.readers.Acquire(context.Background(), e.maxReaders)
		defer e.readers.Release(e.maxReaders)

		e.pool.Close()

		e.cipherMu.Lock()
		e.cipher.Destroy()
		e.cipherMu.Unlock()

		e.logger.Debug("engine shut down")
	})
}
