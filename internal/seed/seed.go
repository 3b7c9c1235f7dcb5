// Package seed gathers entropy from the operating system and expands it into
// the initial generator states and cipher key of an engine.
package seed

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/mrz1836/entropool/internal/chacha"
	"github.com/mrz1836/entropool/internal/mixer"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

const (
	// MinSize is the smallest amount of seed material accepted.
	MinSize = 32

	// DefaultSize is how much material Gather reads by default.
	DefaultSize = 64

	// expandedSize covers the three wyhash states, the four xoshiro words,
	// the cipher key and the cipher nonce.
	expandedSize = 8*3 + 8*4 + chacha.KeySize + chacha.NonceSize

	personalization = "entropool seed expansion v1"
)

// Reader is the entropy source used by Gather.
// It wraps crypto/rand.Reader for consistency and testability.
//
//nolint:gochecknoglobals // Package-level RNG is required for testability
var Reader io.Reader = rand.Reader

// Material is raw high-quality seed bytes.
type Material []byte

// Seeds holds everything derived from one Material.
type Seeds struct {
	Mixer mixer.State
	Key   [chacha.KeySize]byte
	Nonce [chacha.NonceSize]byte
}

// Gather reads n bytes of seed material from Reader.
func Gather(n int) (Material, error) {
	if n < MinSize {
		return nil, poolerr.WithDetails(poolerr.ErrSeedTooShort, map[string]string{
			"size":    strconv.Itoa(n),
			"minimum": strconv.Itoa(MinSize),
		})
	}
	m := make(Material, n)
	if _, err := io.ReadFull(Reader, m); err != nil {
		return nil, poolerr.Wrap(err, "reading seed material")
	}
	return m, nil
}

// Expand derives generator states and cipher parameters from m through a
// BLAKE2b XOF. The same material always yields the same Seeds.
func Expand(m Material) (*Seeds, error) {
	if len(m) < MinSize {
		return nil, poolerr.WithDetails(poolerr.ErrSeedTooShort, map[string]string{
			"size":    strconv.Itoa(len(m)),
			"minimum": strconv.Itoa(MinSize),
		})
	}

	xof, err := blake2b.NewXOF(expandedSize, nil)
	if err != nil {
		return nil, poolerr.Wrap(err, "creating seed expander")
	}
	_, _ = xof.Write([]byte(personalization))
	_, _ = xof.Write(m)

	var out [expandedSize]byte
	if _, err := io.ReadFull(xof, out[:]); err != nil {
		return nil, poolerr.Wrap(err, "expanding seed material")
	}
	defer Zero(out[:])

	s := &Seeds{}
	off := 0
	word := func() uint64 {
		v := binary.LittleEndian.Uint64(out[off:])
		off += 8
		return v
	}

	s.Mixer.Data = mixer.NewWyhash(word())
	s.Mixer.Internal = mixer.NewWyhash(word())
	s.Mixer.Selector = mixer.NewWyhash(word())
	s.Mixer.Wide = mixer.NewXoshiro256([4]uint64{word(), word(), word(), word()})
	off += copy(s.Key[:], out[off:])
	copy(s.Nonce[:], out[off:])

	return s, nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
