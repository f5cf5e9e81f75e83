package game

import (
	"github.com/cespare/xxhash/v2"
)

// Intent represents a player input action as a bitmask
type Intent uint8

const (
	IntentNone Intent = 0
	IntentLeft Intent = 1 << iota
	IntentRight
	IntentJump
)

// MoveInput is the per-tick control payload sent to the host.
type MoveInput struct {
	Intents Intent `json:"intents"`
}

// MoveState is the mover's captured simulation state. Position rides along
// so the checksum covers the whole trajectory, not just derivatives.
type MoveState struct {
	PosX     float64 `json:"px"`
	PosY     float64 `json:"py"`
	VelX     float64 `json:"vx"`
	VelY     float64 `json:"vy"`
	Grounded bool    `json:"grounded"`
}

// Checksum hashes the quantized state for cheap equality probing.
func (st MoveState) Checksum() uint64 {
	var buf [33]byte
	putQuantized(buf[0:8], st.PosX)
	putQuantized(buf[8:16], st.PosY)
	putQuantized(buf[16:24], st.VelX)
	putQuantized(buf[24:32], st.VelY)
	if st.Grounded {
		buf[32] = 1
	}
	return xxhash.Sum64(buf[:])
}

// putQuantized stores v * 1000 as little-endian int64, enough precision to
// tell real divergence from float noise.
func putQuantized(dst []byte, v float64) {
	q := int64(v * 1000)
	for i := 0; i < 8; i++ {
		dst[i] = byte(q >> (8 * i))
	}
}
