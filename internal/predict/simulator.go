// Package predict implements the per-entity prediction state machine: local
// simulation ahead of the server, input transmission with redundancy,
// reconciliation against authoritative snapshots, and the visual passes that
// hide corrections.
package predict

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Simulator is the application's deterministic step function plus capture
// and restore of its custom state. A step must be deterministic with respect
// to (input, starting state) and must integrate using the dt it is handed,
// never the real frame delta, so replays match the original prediction.
type Simulator[I, S any] interface {
	// BuildInput fills in the control payload for the tick being built.
	BuildInput(in *I)

	// Simulate advances the application state by exactly dt seconds.
	Simulate(in I, dt float64)

	// WriteState captures the application state after a step.
	WriteState(st *S)

	// ReadState restores previously captured application state.
	ReadState(st S)
}

// Checksummer is optionally implemented by simulators that can hash their
// state payload. Matching checksums short-circuit the tolerance compare.
type Checksummer[S any] interface {
	Checksum(st S) uint64
}

// PayloadComparer is optionally implemented by simulators that want payload
// fields considered by the reconciliation equality check, beyond position.
type PayloadComparer[S any] interface {
	PayloadEqual(a, b S) bool
}

// Reconciled is optionally implemented by simulators that need to cancel
// predicted side effects when a correction lands.
type Reconciled[S any] interface {
	OnReconcile(server, predicted Snapshot[S])
}

// Body exposes the entity's simulation transform.
type Body interface {
	Position() mgl64.Vec3
	SetPosition(pos mgl64.Vec3)
	Rotation() mgl64.Quat
	SetRotation(rot mgl64.Quat)
}

// Renderable is optionally implemented by bodies that render from a separate
// transform. Local controllers push simulation-plus-offset there every
// visual pass; without it the smoothing offset has nowhere to land and
// corrections snap visibly.
type Renderable interface {
	SetRenderTransform(pos mgl64.Vec3, rot mgl64.Quat)
}
