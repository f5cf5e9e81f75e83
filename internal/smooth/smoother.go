// Package smooth hides reconciliation snaps behind a decaying visual offset.
// The simulation transform stays authoritative; rendering adds the offset so
// the correction is spread over a few frames instead of popping.
package smooth

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// offsetEpsilon is the magnitude below which the offset clamps to identity.
const offsetEpsilon = 1e-3

// Smoother owns the position/rotation offset of one locally simulated entity.
// At rest both offsets are identity; a reconciliation sets them and every
// visual pass decays them back.
type Smoother struct {
	posOffset mgl64.Vec3
	rotOffset mgl64.Quat
	active    bool

	smoothTime float64
	maxOffset  float64
}

// New creates a smoother. smoothTime is the exponential decay constant,
// maxOffset the correction magnitude beyond which rendering snaps instead.
func New(smoothTime, maxOffset float64) *Smoother {
	return &Smoother{
		rotOffset:  mgl64.QuatIdent(),
		smoothTime: smoothTime,
		maxOffset:  maxOffset,
	}
}

// Reset clears both offsets to identity.
func (s *Smoother) Reset() {
	s.posOffset = mgl64.Vec3{}
	s.rotOffset = mgl64.QuatIdent()
	s.active = false
}

// SetError captures the discontinuity introduced by a correction: visPos and
// visRot are the transform the player saw just before the snap, simPos and
// simRot the post-replay simulation transform. Corrections larger than
// maxOffset are not smoothed at all.
func (s *Smoother) SetError(visPos mgl64.Vec3, visRot mgl64.Quat, simPos mgl64.Vec3, simRot mgl64.Quat) {
	offset := visPos.Sub(simPos)
	if offset.Len() > s.maxOffset {
		s.Reset()
		return
	}
	s.posOffset = offset
	s.rotOffset = simRot.Inverse().Mul(visRot).Normalize()
	s.active = true
}

// Decay moves both offsets toward identity with a frame-rate independent
// exponential rate.
func (s *Smoother) Decay(dt float64) {
	if !s.active || dt <= 0 {
		return
	}
	k := 1.0 - math.Exp(-dt/s.smoothTime)
	s.posOffset = s.posOffset.Mul(1.0 - k)
	s.rotOffset = mgl64.QuatNlerp(s.rotOffset, mgl64.QuatIdent(), k)

	if s.posOffset.Len() < offsetEpsilon && quatAngle(s.rotOffset) < offsetEpsilon {
		s.Reset()
	}
}

// Visible composes the rendered transform from the simulation transform and
// the current offset.
func (s *Smoother) Visible(simPos mgl64.Vec3, simRot mgl64.Quat) (mgl64.Vec3, mgl64.Quat) {
	if !s.active {
		return simPos, simRot
	}
	return simPos.Add(s.posOffset), simRot.Mul(s.rotOffset).Normalize()
}

// Offset returns the current offsets.
func (s *Smoother) Offset() (mgl64.Vec3, mgl64.Quat) {
	return s.posOffset, s.rotOffset
}

// Identity reports whether the smoother is at rest.
func (s *Smoother) Identity() bool {
	return !s.active
}

// quatAngle returns the rotation angle of q in radians.
func quatAngle(q mgl64.Quat) float64 {
	w := q.W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	return 2 * math.Acos(math.Abs(w))
}
