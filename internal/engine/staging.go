package engine

import "sync"

type stagingTier int

const (
	stagingReused stagingTier = iota
	stagingAllocated
)

// staging is one read's scratch area. The tier records which allocator it
// came from so release takes the matching path.
type staging struct {
	b    []byte
	tier stagingTier
	ptr  *[]byte
}

// stagingPool hands out scratch areas: reused buffers up to fastMax bytes,
// fresh allocations above that.
type stagingPool struct {
	fastMax int
	reused  sync.Pool
}

func newStagingPool(fastMax int) *stagingPool {
	s := &stagingPool{fastMax: fastMax}
	s.reused.New = func() any {
		buf := make([]byte, fastMax)
		return &buf
	}
	return s
}

func (s *stagingPool) get(size int) *staging {
	if size <= s.fastMax {
		ptr, _ := s.reused.Get().(*[]byte)
		return &staging{b: (*ptr)[:size], tier: stagingReused, ptr: ptr}
	}
	return &staging{b: make([]byte, size), tier: stagingAllocated}
}

// put zeroes st and returns reusable buffers to the pool.
func (s *stagingPool) put(st *staging) {
	clear(st.b)
	if st.tier == stagingReused {
		s.reused.Put(st.ptr)
	}
	st.b, st.ptr = nil, nil
}
