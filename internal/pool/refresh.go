package pool

import (
	"github.com/mrz1836/entropool/internal/mixer"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Refresh re-mixes the row at idx. The caller must hold idx, either from
// Acquire or Claim. Refreshes are serialized across the whole pool.
func (p *Pool) Refresh(idx Index) error {
	if !p.holds(idx) {
		return poolerr.WithDetails(poolerr.ErrInvalidIndex, map[string]string{
			"index":  idx.String(),
			"reason": "buffer not held",
		})
	}

	p.mixMu.Lock()
	defer p.mixMu.Unlock()

	if p.words == nil {
		return poolerr.ErrShutdown
	}
	p.mix(p.row(idx))
	p.refreshes.Add(1)

	return nil
}

// mix runs one refresh pass over row with the pool's generators. Callers
// hold mixMu, except during populate.
func (p *Pool) mix(row []uint64) {
	mixRow(p.gen, row)
}

// mixRow rotates each group of four words by one position, keys every word
// with a fresh Data word and one of two salts, then shuffles the row.
func mixRow(g *mixer.State, row []uint64) {
	coin := byte(g.Internal.Next())
	var z [2]uint64
	z[0] = g.Salt(coin&1 != 0)
	z[1] = g.Salt(coin&2 != 0)

	for c := 0; c < len(row)-4; c += 4 {
		sel := byte(g.Internal.Next())
		x := [2]uint64{g.Data.Next(), g.Data.Next()}

		first := row[c]
		row[c] = row[c+1] ^ x[sel&1] ^ z[sel>>4&1]
		row[c+1] = row[c+2] ^ x[sel>>1&1] ^ z[sel>>5&1]
		row[c+2] = row[c+3] ^ x[sel>>2&1] ^ z[sel>>6&1]
		row[c+3] = first ^ x[sel>>3&1] ^ z[sel>>7&1]
	}

	Shuffle(row, ParamsFrom(uint16(g.Internal.Next())))
}
