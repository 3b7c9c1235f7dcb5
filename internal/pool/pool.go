// Package pool implements the fixed pool of pre-mixed random buffers.
//
// The pool is an arena of rows addressed by Index. Each row holds RowWords
// 64-bit words; the first PayloadWords (512 bytes) are delivered to readers
// and the rest is headroom used by the shuffle transform.
//
// Two locks guard the pool. The busy-flag lock protects reservation state and
// the Selector generator. The mixing lock serializes every refresh across the
// whole pool and protects the Data, Internal and Wide generators.
package pool

import (
	"encoding/binary"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mrz1836/entropool/internal/mixer"
	"github.com/mrz1836/entropool/internal/securemem"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

const (
	// DefaultBuffers is the number of rows in the reference configuration.
	DefaultBuffers = 64

	// DefaultRowWords is the row width in the reference configuration.
	DefaultRowWords = 67

	// PayloadWords is the number of words per row delivered to readers.
	PayloadWords = 64

	// PayloadBytes is the payload size of one row.
	PayloadBytes = PayloadWords * 8

	// MinRowWords is the narrowest row whose mixing pass covers the payload.
	MinRowWords = PayloadWords + 1

	// MaxBuffers bounds the pool size.
	MaxBuffers = 256
)

// Index addresses one row of the pool. Obtain one from Acquire, Claim or
// Pool.Index; never construct it from unchecked input.
type Index int

// Config sizes a pool.
type Config struct {
	Buffers    int
	RowWords   int
	LockMemory bool
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Buffers:    DefaultBuffers,
		RowWords:   DefaultRowWords,
		LockMemory: true,
	}
}

// Validate checks that the configuration describes a usable pool.
func (c Config) Validate() error {
	if c.Buffers < 1 || c.Buffers > MaxBuffers {
		return poolerr.WithDetails(poolerr.ErrConfigInvalid, map[string]string{
			"buffers": strconv.Itoa(c.Buffers),
			"valid":   "1-" + strconv.Itoa(MaxBuffers),
		})
	}
	if c.RowWords < MinRowWords {
		return poolerr.WithDetails(poolerr.ErrConfigInvalid, map[string]string{
			"row_words": strconv.Itoa(c.RowWords),
			"minimum":   strconv.Itoa(MinRowWords),
		})
	}
	return nil
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Buffers   int
	RowWords  int
	Busy      int
	Refreshes uint64
	Memory    securemem.Tier
}

// Pool is the buffer pool. Create it with New.
type Pool struct {
	arena    *securemem.Arena
	lockErr  error
	words    []uint64
	buffers  int
	rowWords int

	gen *mixer.State

	busyMu   sync.Mutex
	busy     []bool
	held     int
	closed   bool
	released chan struct{}

	mixMu sync.Mutex

	refreshes atomic.Uint64
}

// New allocates a pool, seeds every word from gen and runs one refresh per
// row. The pool takes ownership of gen; callers must not advance it
// afterwards. When locked memory was requested but refused the pool falls
// back to heap memory and LockError reports why.
func New(cfg Config, gen *mixer.State) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	arena, lockErr := securemem.Alloc(cfg.Buffers*cfg.RowWords, cfg.LockMemory)

	p := &Pool{
		arena:    arena,
		lockErr:  lockErr,
		words:    arena.Words(),
		buffers:  cfg.Buffers,
		rowWords: cfg.RowWords,
		gen:      gen,
		busy:     make([]bool, cfg.Buffers),
		released: make(chan struct{}, 1),
	}
	p.populate()

	return p, nil
}

// LockError returns the reason locked memory was unavailable, or nil.
func (p *Pool) LockError() error {
	return p.lockErr
}

// populate fills every word of every row and mixes each row once. It runs
// before the pool is shared, so no locks are taken.
func (p *Pool) populate() {
	for b := 0; b < p.buffers; b++ {
		row := p.row(Index(b))
		for w := range row {
			row[w] = p.gen.Data.Next() ^ p.gen.Wide.Next()
		}
		p.mix(row)
	}
}

// Buffers returns the number of rows.
func (p *Pool) Buffers() int {
	return p.buffers
}

// RowWords returns the row width in words.
func (p *Pool) RowWords() int {
	return p.rowWords
}

// Index validates i and converts it to an Index.
func (p *Pool) Index(i int) (Index, error) {
	if i < 0 || i >= p.buffers {
		return 0, poolerr.WithDetails(poolerr.ErrInvalidIndex, map[string]string{
			"index":   strconv.Itoa(i),
			"buffers": strconv.Itoa(p.buffers),
		})
	}
	return Index(i), nil
}

// row returns the full row for idx. The slice capacity is capped so the row
// can never spill into its neighbour.
func (p *Pool) row(idx Index) []uint64 {
	start := int(idx) * p.rowWords
	end := start + p.rowWords
	return p.words[start:end:end]
}

// CopyPayload writes the payload of idx into dst as little-endian words and
// returns the number of bytes written. The caller must hold idx.
func (p *Pool) CopyPayload(dst []byte, idx Index) int {
	row := p.row(idx)
	n := 0
	for w := 0; w < PayloadWords && n+8 <= len(dst); w++ {
		binary.LittleEndian.PutUint64(dst[n:], row[w])
		n += 8
	}
	return n
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.busyMu.Lock()
	busy := p.held
	p.busyMu.Unlock()

	return Stats{
		Buffers:   p.buffers,
		RowWords:  p.rowWords,
		Busy:      busy,
		Refreshes: p.refreshes.Load(),
		Memory:    p.arena.Tier(),
	}
}

// Close marks the pool closed, waits for the mixing lock and releases the
// arena. Buffers still held by readers must be released first; Close does
// not wait for them. Safe to call multiple times.
func (p *Pool) Close() {
	p.busyMu.Lock()
	if p.closed {
		p.busyMu.Unlock()
		return
	}
	p.closed = true
	p.busyMu.Unlock()

	p.mixMu.Lock()
	defer p.mixMu.Unlock()
	p.arena.Release()
	p.words = nil
}
