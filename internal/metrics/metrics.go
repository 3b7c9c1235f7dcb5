// Package metrics provides the engine's advisory counters.
// Counters have no effect on generated bytes; they exist for the status
// interface only.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// BlockSize is the unit in which served output is counted.
const BlockSize = 512

// Counters holds session accounting and traffic counters. Session counts are
// guarded by their own mutex, independent of every pool lock; traffic counters
// are atomic.
type Counters struct {
	sessionMu    sync.Mutex
	currentOpen  int64
	totalOpen    int64
	blocksServed atomic.Int64
	bytesServed  atomic.Int64
	reads        atomic.Int64
	readErrors   atomic.Int64
	readNanos    atomic.Int64
	discarded    atomic.Int64
	rateLimited  atomic.Int64
}

// New returns zeroed counters.
func New() *Counters {
	return &Counters{}
}

// SessionOpened records a new session.
func (c *Counters) SessionOpened() {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	c.currentOpen++
	c.totalOpen++
}

// SessionClosed records a closed session.
func (c *Counters) SessionClosed() {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.currentOpen > 0 {
		c.currentOpen--
	}
}

// RecordRead records one serviced read of n bytes that consumed blocks
// pool buffers.
func (c *Counters) RecordRead(n, blocks int, duration time.Duration, err error) {
	c.reads.Add(1)
	c.readNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.readErrors.Add(1)
		return
	}
	c.bytesServed.Add(int64(n))
	c.blocksServed.Add(int64(blocks))
}

// RecordDiscard records bytes accepted by the discard sink.
func (c *Counters) RecordDiscard(n int) {
	c.discarded.Add(int64(n))
}

// RecordRateLimited records a request rejected by rate limiting.
func (c *Counters) RecordRateLimited() {
	c.rateLimited.Add(1)
}

// Status is a point-in-time view of the engine. The pool fields are filled in
// by the engine.
type Status struct {
	CurrentOpen      int64   `json:"current_open_sessions"`
	TotalOpen        int64   `json:"total_open_sessions"`
	KiBServed        int64   `json:"total_kibibytes_served"`
	BytesServed      int64   `json:"bytes_served"`
	Reads            int64   `json:"reads"`
	ReadErrors       int64   `json:"read_errors"`
	AvgReadLatencyMs float64 `json:"avg_read_latency_ms"`
	DiscardedBytes   int64   `json:"discarded_bytes"`
	RateLimited      int64   `json:"rate_limited"`

	Policy            string `json:"policy,omitempty"`
	Buffers           int    `json:"buffers,omitempty"`
	BusyBuffers       int    `json:"busy_buffers"`
	Refreshes         uint64 `json:"refreshes"`
	DaemonRefreshes   uint64 `json:"daemon_refreshes"`
	Memory            string `json:"memory,omitempty"`
	CipherRounds      int    `json:"cipher_rounds,omitempty"`
	CipherBlocks      uint64 `json:"cipher_blocks"`
	RefreshIntervalMs int64  `json:"refresh_interval_ms,omitempty"`
}

// Snapshot returns the counter part of a Status. KiBServed counts 512-byte
// blocks in pairs.
func (c *Counters) Snapshot() Status {
	c.sessionMu.Lock()
	current, total := c.currentOpen, c.totalOpen
	c.sessionMu.Unlock()

	s := Status{
		CurrentOpen:    current,
		TotalOpen:      total,
		KiBServed:      c.blocksServed.Load() * BlockSize / 1024,
		BytesServed:    c.bytesServed.Load(),
		Reads:          c.reads.Load(),
		ReadErrors:     c.readErrors.Load(),
		DiscardedBytes: c.discarded.Load(),
		RateLimited:    c.rateLimited.Load(),
	}
	if s.Reads > 0 {
		s.AvgReadLatencyMs = float64(c.readNanos.Load()) / float64(s.Reads) / 1e6
	}
	return s
}

// Reset resets all counters to zero.
// Useful for testing.
func (c *Counters) Reset() {
	c.sessionMu.Lock()
	c.currentOpen = 0
	c.totalOpen = 0
	c.sessionMu.Unlock()

	c.blocksServed.Store(0)
	c.bytesServed.Store(0)
	c.reads.Store(0)
	c.readErrors.Store(0)
	c.readNanos.Store(0)
	c.discarded.Store(0)
	c.rateLimited.Store(0)
}
