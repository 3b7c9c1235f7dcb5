// Package securemem allocates long-lived memory for key material and pool
// buffers. Allocation is two-tier: the fast tier pins pages with mlock so they
// are never written to swap; when the platform refuses (RLIMIT_MEMLOCK,
// missing privilege) the arena falls back to ordinary heap memory.
package securemem

import (
	"runtime"
	"sync"
	"unsafe"
)

// Tier identifies which allocator backs an arena.
type Tier int

// Allocation tiers.
const (
	TierHeap Tier = iota
	TierLocked
)

// String returns the string representation of a tier.
func (t Tier) String() string {
	if t == TierLocked {
		return "locked"
	}
	return "heap"
}

// Arena is a fixed-size slab of 64-bit words that lives until Release.
type Arena struct {
	mu    sync.Mutex
	words []uint64
	tier  Tier
}

// Alloc allocates an arena of n words. When lock is true the fast tier is
// tried first. The returned error is non-nil only to report that the fast
// tier failed; the arena is always usable.
func Alloc(n int, lock bool) (*Arena, error) {
	a := &Arena{words: make([]uint64, n), tier: TierHeap}

	var err error
	if lock && n > 0 {
		if err = mlock(asBytes(a.words)); err == nil {
			a.tier = TierLocked
		}
	}

	// Ensure memory is cleared even if Release isn't called
	runtime.SetFinalizer(a, func(arena *Arena) {
		arena.Release()
	})

	return a, err
}

// Words returns the backing words. Returns nil after Release.
func (a *Arena) Words() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.words
}

// Tier reports which allocator backs the arena.
func (a *Arena) Tier() Tier {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tier
}

// Len returns the number of words, 0 after Release.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.words)
}

// Release zeroes the arena and unlocks it. Safe to call multiple times.
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.words == nil {
		return
	}

	clear(a.words)

	if a.tier == TierLocked {
		munlock(asBytes(a.words))
		a.tier = TierHeap
	}

	a.words = nil
	runtime.SetFinalizer(a, nil)
}

// asBytes views a word slice as bytes without copying.
func asBytes(w []uint64) []byte {
	if len(w) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), len(w)*8)
}
