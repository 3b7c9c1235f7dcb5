// Package device exposes an engine as per-consumer sessions that behave like
// an open random device: reads return generated bytes, writes are accepted
// and discarded.
package device

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/entropool/internal/metrics"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Source is the engine surface a session needs.
type Source interface {
	ReadInto(p []byte) (int, error)
	DiscardWrite(p []byte) int
	Counters() *metrics.Counters
}

// Session is one open handle on the engine. It implements io.ReadWriteCloser.
type Session struct {
	id       string
	src      Source
	openedAt time.Time

	mu     sync.Mutex
	closed bool
	read   int64
}

// Open starts a session and records it in the engine's counters.
func Open(src Source) *Session {
	src.Counters().SessionOpened()
	return &Session{
		id:       uuid.NewString(),
		src:      src,
		openedAt: time.Now(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// OpenedAt returns when the session was opened.
func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// BytesRead returns the number of bytes read through this session.
func (s *Session) BytesRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read
}

// Read fills p with generated bytes.
func (s *Session) Read(p []byte) (int, error) {
	if s.isClosed() {
		return 0, poolerr.WithDetails(poolerr.ErrShutdown, map[string]string{
			"session": s.id,
			"reason":  "session closed",
		})
	}

	n, err := s.src.ReadInto(p)

	s.mu.Lock()
	s.read += int64(n)
	s.mu.Unlock()

	return n, err
}

// Write accepts and discards p.
func (s *Session) Write(p []byte) (int, error) {
	if s.isClosed() {
		return 0, poolerr.WithDetails(poolerr.ErrShutdown, map[string]string{
			"session": s.id,
			"reason":  "session closed",
		})
	}
	return s.src.DiscardWrite(p), nil
}

// Close ends the session. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.src.Counters().SessionClosed()
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
