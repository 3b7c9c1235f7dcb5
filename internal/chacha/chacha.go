// Package chacha implements the ChaCha stream cipher used to whiten pool
// output. The block layout follows RFC 8439 (256-bit key, 96-bit nonce) with
// the block counter extended to 64 bits by carrying into the first nonce word.
//
// A Cipher is a running keystream: successive calls continue where the last
// one stopped. It must not be copied or shared without external locking,
// otherwise keystream bytes are reused.
package chacha

import (
	"encoding/binary"
	"math/bits"
	"strconv"

	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

const (
	// KeySize is the key length in bytes.
	KeySize = 32

	// NonceSize is the nonce length in bytes.
	NonceSize = 12

	// BlockSize is the keystream block length in bytes.
	BlockSize = 64

	// DefaultRounds is the standard ChaCha20 round count.
	DefaultRounds = 20
)

// "expand 32-byte k"
const (
	sigma0 = 0x61707865
	sigma1 = 0x3320646e
	sigma2 = 0x79622d32
	sigma3 = 0x6b206574
)

// Cipher is a ChaCha keystream generator.
type Cipher struct {
	state     [16]uint32
	keystream [BlockSize]byte
	position  int
	rounds    int
	nonce0    uint32
	counter   uint64
	wrapped   bool
}

// ValidRounds reports whether r is a supported round count.
func ValidRounds(r int) bool {
	return r == 8 || r == 12 || r == DefaultRounds
}

// New creates a cipher positioned at the start of block counter.
func New(key [KeySize]byte, nonce [NonceSize]byte, counter uint64, rounds int) (*Cipher, error) {
	if !ValidRounds(rounds) {
		return nil, poolerr.WithDetails(poolerr.ErrInvalidRounds, map[string]string{
			"rounds": strconv.Itoa(rounds),
		})
	}

	c := &Cipher{rounds: rounds, position: BlockSize}
	c.state[0] = sigma0
	c.state[1] = sigma1
	c.state[2] = sigma2
	c.state[3] = sigma3
	for i := 0; i < 8; i++ {
		c.state[4+i] = binary.LittleEndian.Uint32(key[i*4:])
	}
	c.nonce0 = binary.LittleEndian.Uint32(nonce[0:])
	c.state[14] = binary.LittleEndian.Uint32(nonce[4:])
	c.state[15] = binary.LittleEndian.Uint32(nonce[8:])
	c.setCounter(counter)

	return c, nil
}

// setCounter splits the 64-bit counter across state words 12 and 13.
func (c *Cipher) setCounter(counter uint64) {
	c.counter = counter
	c.state[12] = uint32(counter)
	c.state[13] = c.nonce0 + uint32(counter>>32)
}

// Counter returns the counter of the next block to be generated.
func (c *Cipher) Counter() uint64 {
	return c.counter
}

// Position returns the cursor into the current keystream block (0..64).
func (c *Cipher) Position() int {
	return c.position
}

// Rounds returns the configured round count.
func (c *Cipher) Rounds() int {
	return c.rounds
}

// Wrapped reports whether the 64-bit block counter has wrapped around.
// After a wrap the keystream repeats; callers should rekey.
func (c *Cipher) Wrapped() bool {
	return c.wrapped
}

func quarterRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d = bits.RotateLeft32(d^a, 16)
	c += d
	b = bits.RotateLeft32(b^c, 12)
	a += b
	d = bits.RotateLeft32(d^a, 8)
	c += d
	b = bits.RotateLeft32(b^c, 7)
	return a, b, c, d
}

// nextBlock fills the keystream buffer from the current state and advances
// the block counter.
func (c *Cipher) nextBlock() {
	x := c.state

	for i := 0; i < c.rounds; i += 2 {
		// Column round.
		x[0], x[4], x[8], x[12] = quarterRound(x[0], x[4], x[8], x[12])
		x[1], x[5], x[9], x[13] = quarterRound(x[1], x[5], x[9], x[13])
		x[2], x[6], x[10], x[14] = quarterRound(x[2], x[6], x[10], x[14])
		x[3], x[7], x[11], x[15] = quarterRound(x[3], x[7], x[11], x[15])

		// Diagonal round.
		x[0], x[5], x[10], x[15] = quarterRound(x[0], x[5], x[10], x[15])
		x[1], x[6], x[11], x[12] = quarterRound(x[1], x[6], x[11], x[12])
		x[2], x[7], x[8], x[13] = quarterRound(x[2], x[7], x[8], x[13])
		x[3], x[4], x[9], x[14] = quarterRound(x[3], x[4], x[9], x[14])
	}

	for i := range x {
		binary.LittleEndian.PutUint32(c.keystream[i*4:], x[i]+c.state[i])
	}

	c.state[12]++
	if c.state[12] == 0 {
		c.state[13]++
	}
	c.counter++
	if c.counter == 0 {
		c.wrapped = true
	}
}

// Apply XORs the keystream into buf in place.
func (c *Cipher) Apply(buf []byte) {
	c.XORKeyStream(buf, buf)
}

// XORKeyStream XORs each byte of src with the keystream and writes it to dst.
// Dst and src may overlap entirely. It satisfies crypto/cipher.Stream.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("chacha: output smaller than input")
	}
	for i := range src {
		if c.position >= BlockSize {
			c.nextBlock()
			c.position = 0
		}
		dst[i] = src[i] ^ c.keystream[c.position]
		c.position++
	}
}

// Destroy zeroes the key material held by the cipher.
func (c *Cipher) Destroy() {
	c.state = [16]uint32{}
	c.keystream = [BlockSize]byte{}
	c.nonce0 = 0
	c.position = BlockSize
}
