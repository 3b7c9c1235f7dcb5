package pool

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/entropool/internal/mixer"
	"github.com/mrz1836/entropool/internal/securemem"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

func testState(seed uint64) mixer.State {
	return mixer.State{
		Data:     mixer.NewWyhash(seed),
		Internal: mixer.NewWyhash(seed + 1),
		Selector: mixer.NewWyhash(seed + 2),
		Wide:     mixer.NewXoshiro256([4]uint64{seed, seed + 3, seed + 5, seed + 7}),
	}
}

func newTestPool(t *testing.T, buffers int) *Pool {
	t.Helper()
	g := testState(42)
	p, err := New(Config{Buffers: buffers, RowWords: DefaultRowWords}, &g)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func payload(p *Pool, idx Index) []byte {
	buf := make([]byte, PayloadBytes)
	p.CopyPayload(buf, idx)
	return buf
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"single buffer", Config{Buffers: 1, RowWords: MinRowWords}, false},
		{"max buffers", Config{Buffers: MaxBuffers, RowWords: DefaultRowWords}, false},
		{"zero buffers", Config{Buffers: 0, RowWords: DefaultRowWords}, true},
		{"too many buffers", Config{Buffers: MaxBuffers + 1, RowWords: DefaultRowWords}, true},
		{"row too narrow", Config{Buffers: 4, RowWords: PayloadWords}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, poolerr.ErrConfigInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_PopulatesExactBounds(t *testing.T) {
	t.Parallel()
	const buffers, rowWords = 5, 70

	g := testState(7)
	ref := g

	p, err := New(Config{Buffers: buffers, RowWords: rowWords}, &g)
	require.NoError(t, err)
	defer p.Close()

	want := make([]uint64, buffers*rowWords)
	for b := 0; b < buffers; b++ {
		row := want[b*rowWords : (b+1)*rowWords]
		for w := range row {
			row[w] = ref.Data.Next() ^ ref.Wide.Next()
		}
		mixRow(&ref, row)
	}

	assert.Equal(t, want, p.words)
	assert.Len(t, p.words, buffers*rowWords)

	// Both generators consumed exactly the same number of draws.
	assert.Equal(t, ref.Data.Next(), g.Data.Next())
	assert.Equal(t, ref.Wide.Next(), g.Wide.Next())
	assert.Equal(t, ref.Internal.Next(), g.Internal.Next())
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	g := testState(1)
	_, err := New(Config{Buffers: 0, RowWords: DefaultRowWords}, &g)
	require.Error(t, err)
	assert.ErrorIs(t, err, poolerr.ErrConfigInvalid)
}

func TestNew_HeapTierWithoutLock(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)
	assert.Equal(t, securemem.TierHeap, p.Stats().Memory)
	assert.NoError(t, p.LockError())
}

func TestRefresh_ChangesPayload(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 4)

	for round := 0; round < 32; round++ {
		idx, err := p.Acquire()
		require.NoError(t, err)

		before := payload(p, idx)
		require.NoError(t, p.Refresh(idx))
		after := payload(p, idx)
		require.NoError(t, p.Release(idx))

		diff := 0
		for i := range before {
			if before[i] != after[i] {
				diff++
			}
		}
		assert.Greater(t, diff, 450, "round %d: only %d of %d bytes changed", round, diff, PayloadBytes)
	}

	assert.Equal(t, uint64(32), p.Stats().Refreshes)
}

func TestRefresh_TouchesOnlyItsRow(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 3)

	require.NoError(t, p.Claim(context.Background(), 1))
	other0 := append([]uint64(nil), p.row(0)...)
	other2 := append([]uint64(nil), p.row(2)...)

	require.NoError(t, p.Refresh(1))
	require.NoError(t, p.Release(1))

	assert.Equal(t, other0, p.row(0))
	assert.Equal(t, other2, p.row(2))
}

func TestRefresh_RequiresHeldBuffer(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	err := p.Refresh(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, poolerr.ErrInvalidIndex)

	err = p.Refresh(Index(9))
	require.Error(t, err)
	assert.ErrorIs(t, err, poolerr.ErrInvalidIndex)
}

func TestCopyPayload(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	full := payload(p, 0)
	assert.Equal(t, p.row(0)[0], binary.LittleEndian.Uint64(full))
	assert.Equal(t, p.row(0)[PayloadWords-1], binary.LittleEndian.Uint64(full[PayloadBytes-8:]))

	short := make([]byte, 20)
	assert.Equal(t, 16, p.CopyPayload(short, 0), "only whole words are copied")
	assert.Equal(t, full[:16], short[:16])

	big := make([]byte, PayloadBytes+64)
	assert.Equal(t, PayloadBytes, p.CopyPayload(big, 0), "headroom words are never delivered")
}

func TestIndex(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 4)

	idx, err := p.Index(3)
	require.NoError(t, err)
	assert.Equal(t, Index(3), idx)

	for _, bad := range []int{-1, 4, 100} {
		_, err := p.Index(bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, poolerr.ErrInvalidIndex)
	}
}

func TestAcquire_ExhaustionAndRelease(t *testing.T) {
	t.Parallel()
	const buffers = 6
	p := newTestPool(t, buffers)

	seen := make(map[Index]bool)
	for i := 0; i < buffers; i++ {
		idx, err := p.Acquire()
		require.NoError(t, err)
		require.False(t, seen[idx], "index %d handed out twice", idx)
		seen[idx] = true
	}
	assert.Equal(t, buffers, p.Stats().Busy)

	_, err := p.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, poolerr.ErrPoolExhausted)
	assert.Equal(t, poolerr.ExitBusy, poolerr.ExitCode(err))

	require.NoError(t, p.Release(4))
	idx, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, Index(4), idx, "the only free buffer is found by the scan")
}

func TestAcquire_AlwaysInRange(t *testing.T) {
	t.Parallel()
	const buffers = 5
	p := newTestPool(t, buffers)

	counts := make([]int, buffers)
	for i := 0; i < 2000; i++ {
		idx, err := p.Acquire()
		require.NoError(t, err)
		require.GreaterOrEqual(t, int(idx), 0)
		require.Less(t, int(idx), buffers)
		counts[idx]++
		require.NoError(t, p.Release(idx))
	}
	for b, c := range counts {
		assert.Positive(t, c, "buffer %d never selected", b)
	}
}

func TestAcquire_ConcurrentNeverDoubleAllocates(t *testing.T) {
	t.Parallel()
	const (
		buffers    = 8
		goroutines = 8
		cycles     = 300
	)
	p := newTestPool(t, buffers)

	owners := make([]atomic.Int32, buffers)
	var violations atomic.Int32
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := 0; c < cycles; c++ {
				idx, err := p.Acquire()
				if err != nil {
					violations.Add(1)
					return
				}
				if owners[idx].Add(1) != 1 {
					violations.Add(1)
				}
				if c%10 == 0 {
					if err := p.Refresh(idx); err != nil {
						violations.Add(1)
					}
				}
				owners[idx].Add(-1)
				if err := p.Release(idx); err != nil {
					violations.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), violations.Load())
	assert.Equal(t, 0, p.Stats().Busy)
}

func TestAcquireWait(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	held, err := p.Acquire()
	require.NoError(t, err)

	got := make(chan Index, 1)
	go func() {
		idx, err := p.AcquireWait(context.Background())
		if err == nil {
			got <- idx
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Release(held))

	select {
	case idx := <-got:
		assert.Equal(t, held, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("AcquireWait did not return after release")
	}
}

func TestAcquireWait_ContextCanceled(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	_, err := p.Acquire()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.AcquireWait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClaim_WaitsForOwner(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	require.NoError(t, p.Claim(context.Background(), 1))

	claimed := make(chan error, 1)
	go func() {
		claimed <- p.Claim(context.Background(), 1)
	}()

	select {
	case <-claimed:
		t.Fatal("Claim returned while the buffer was held")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, p.Release(1))
	select {
	case err := <-claimed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Claim did not return after release")
	}
	require.NoError(t, p.Release(1))
}

func TestClaim_InvalidIndex(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)
	err := p.Claim(context.Background(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, poolerr.ErrInvalidIndex)
}

func TestRelease_Invalid(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	tests := []struct {
		name string
		idx  Index
	}{
		{"not held", 0},
		{"negative", -1},
		{"out of range", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Release(tt.idx)
			require.Error(t, err)
			assert.ErrorIs(t, err, poolerr.ErrInvalidIndex)
		})
	}
}

func TestClose(t *testing.T) {
	t.Parallel()
	g := testState(3)
	p, err := New(Config{Buffers: 2, RowWords: DefaultRowWords}, &g)
	require.NoError(t, err)

	idx, err := p.Acquire()
	require.NoError(t, err)

	p.Close()
	p.Close()

	_, err = p.Acquire()
	require.ErrorIs(t, err, poolerr.ErrShutdown)

	err = p.Refresh(idx)
	require.ErrorIs(t, err, poolerr.ErrShutdown)

	err = p.Claim(context.Background(), 1)
	require.ErrorIs(t, err, poolerr.ErrShutdown)
}

func BenchmarkRefresh(b *testing.B) {
	g := testState(1)
	p, err := New(DefaultConfig(), &g)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	idx, err := p.Acquire()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Refresh(idx)
	}
}

func BenchmarkAcquireRelease(b *testing.B) {
	g := testState(1)
	p, err := New(DefaultConfig(), &g)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx, err := p.Acquire()
			if err != nil {
				continue
			}
			_ = p.Release(idx)
		}
	})
}
