package pool

import (
	"context"
	"math/bits"
	"strconv"
	"time"

	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

const (
	waitBackoffMin = time.Millisecond
	waitBackoffMax = 50 * time.Millisecond
)

func (i Index) String() string {
	return strconv.Itoa(int(i))
}

// Acquire reserves a free buffer. The scan starts at a pseudo-random index
// and visits each buffer at most once; when every buffer is busy it returns
// ErrPoolExhausted instead of spinning.
func (p *Pool) Acquire() (Index, error) {
	p.busyMu.Lock()
	defer p.busyMu.Unlock()

	if p.closed {
		return 0, poolerr.ErrShutdown
	}

	start := p.candidate()
	for k := 0; k < p.buffers; k++ {
		i := start + k
		if i >= p.buffers {
			i -= p.buffers
		}
		if !p.busy[i] {
			p.busy[i] = true
			p.held++
			return Index(i), nil
		}
	}

	return 0, poolerr.WithDetails(poolerr.ErrPoolExhausted, map[string]string{
		"buffers": strconv.Itoa(p.buffers),
	})
}

// candidate maps the top bits of a Selector draw into [0, buffers).
// Callers hold busyMu.
func (p *Pool) candidate() int {
	hi, _ := bits.Mul64(p.gen.Selector.Next(), uint64(p.buffers))
	return int(hi)
}

// AcquireWait is Acquire that waits for a release while the pool is
// exhausted. It returns ctx.Err() if ctx ends first.
func (p *Pool) AcquireWait(ctx context.Context) (Index, error) {
	backoff := waitBackoffMin
	for {
		idx, err := p.Acquire()
		if !poolerr.Is(err, poolerr.ErrPoolExhausted) {
			return idx, err
		}
		if err := p.waitRelease(ctx, &backoff); err != nil {
			return 0, err
		}
	}
}

// Claim reserves the specific buffer idx, waiting while another owner holds
// it. The refresher uses it so a row is never mixed while a reader copies it.
func (p *Pool) Claim(ctx context.Context, idx Index) error {
	if _, err := p.Index(int(idx)); err != nil {
		return err
	}

	backoff := waitBackoffMin
	for {
		p.busyMu.Lock()
		if p.closed {
			p.busyMu.Unlock()
			return poolerr.ErrShutdown
		}
		if !p.busy[idx] {
			p.busy[idx] = true
			p.held++
			p.busyMu.Unlock()
			return nil
		}
		p.busyMu.Unlock()

		if err := p.waitRelease(ctx, &backoff); err != nil {
			return err
		}
	}
}

// waitRelease blocks until some buffer is released, the backoff elapses or
// ctx ends. The release signal holds a single token, so concurrent waiters
// fall back to the timer.
func (p *Pool) waitRelease(ctx context.Context, backoff *time.Duration) error {
	timer := time.NewTimer(*backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.released:
	case <-timer.C:
		*backoff *= 2
		if *backoff > waitBackoffMax {
			*backoff = waitBackoffMax
		}
	}
	return nil
}

// Release returns idx to the pool. Releasing an index that is out of range
// or not held returns ErrInvalidIndex.
func (p *Pool) Release(idx Index) error {
	p.busyMu.Lock()
	defer p.busyMu.Unlock()

	if idx < 0 || int(idx) >= p.buffers || !p.busy[idx] {
		return poolerr.WithDetails(poolerr.ErrInvalidIndex, map[string]string{
			"index":  idx.String(),
			"reason": "buffer not held",
		})
	}
	p.busy[idx] = false
	p.held--

	select {
	case p.released <- struct{}{}:
	default:
	}
	return nil
}

// holds reports whether idx is currently reserved.
func (p *Pool) holds(idx Index) bool {
	p.busyMu.Lock()
	defer p.busyMu.Unlock()
	return idx >= 0 && int(idx) < p.buffers && p.busy[idx]
}
