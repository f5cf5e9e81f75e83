package predict

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Input is one tick's control payload.
type Input[P any] struct {
	Tick    uint64 `json:"t"`
	Payload P      `json:"payload"`
}

// HistoryTick implements history.Keyed.
func (in Input[P]) HistoryTick() uint64 { return in.Tick }

// Snapshot is the simulation state at the end of one tick: engine transform
// plus the application payload. Sum is an optional payload checksum; zero
// means absent.
type Snapshot[P any] struct {
	Tick    uint64     `json:"t"`
	At      float64    `json:"at"`
	Pos     mgl64.Vec3 `json:"pos"`
	Rot     mgl64.Quat `json:"rot"`
	Sum     uint64     `json:"sum,omitempty"`
	Payload P          `json:"payload"`
}

// HistoryTick implements history.Keyed.
func (s Snapshot[P]) HistoryTick() uint64 { return s.Tick }

// inputMsg is the client-to-host wire body: the fresh input paired with the
// previous tick's input so a single lost datagram costs nothing.
type inputMsg[I any] struct {
	Input Input[I]  `json:"input"`
	Prev  *Input[I] `json:"prev,omitempty"`
}

// stateMsg is the host-to-peer wire body carrying one authoritative snapshot.
type stateMsg[S any] struct {
	Snapshot Snapshot[S] `json:"snapshot"`
}
