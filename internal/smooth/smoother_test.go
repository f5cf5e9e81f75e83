package smooth

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAtRestIsIdentity(t *testing.T) {
	s := New(0.1, 2.0)

	if !s.Identity() {
		t.Fatal("fresh smoother should be at identity")
	}
	pos, rot := s.Visible(mgl64.Vec3{3, 4, 5}, mgl64.QuatIdent())
	if pos != (mgl64.Vec3{3, 4, 5}) {
		t.Fatalf("visible pos = %v, want sim pos", pos)
	}
	if rot != mgl64.QuatIdent() {
		t.Fatalf("visible rot = %v, want identity", rot)
	}
}

func TestSetErrorPreservesVisibleTransform(t *testing.T) {
	s := New(0.1, 2.0)

	visPos := mgl64.Vec3{10, 0, 0}
	simPos := mgl64.Vec3{9, 0, 0}
	visRot := mgl64.QuatRotate(0.2, mgl64.Vec3{0, 1, 0})
	simRot := mgl64.QuatRotate(0.1, mgl64.Vec3{0, 1, 0})

	s.SetError(visPos, visRot, simPos, simRot)

	gotPos, gotRot := s.Visible(simPos, simRot)
	if d := gotPos.Sub(visPos).Len(); d > 1e-9 {
		t.Fatalf("visible pos drifted by %v right after SetError", d)
	}
	if d := quatAngle(gotRot.Inverse().Mul(visRot)); d > 1e-9 {
		t.Fatalf("visible rot drifted by %v right after SetError", d)
	}
}

func TestLargeCorrectionSnaps(t *testing.T) {
	s := New(0.1, 2.0)

	s.SetError(mgl64.Vec3{10, 0, 0}, mgl64.QuatIdent(), mgl64.Vec3{5, 0, 0}, mgl64.QuatIdent())
	if !s.Identity() {
		t.Fatal("offset beyond MaxVisualOffset must be discarded")
	}
}

func TestDecayIsMonotonic(t *testing.T) {
	s := New(0.1, 2.0)
	s.SetError(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent(), mgl64.Vec3{}, mgl64.QuatIdent())

	prev := math.Inf(1)
	for i := 0; i < 60; i++ {
		s.Decay(1.0 / 60.0)
		off, _ := s.Offset()
		if off.Len() > prev {
			t.Fatalf("offset grew at step %d: %v > %v", i, off.Len(), prev)
		}
		prev = off.Len()
	}
	if prev > 0.01 {
		t.Fatalf("offset after 1s of decay still %v", prev)
	}
}

func TestDecayClampsToIdentity(t *testing.T) {
	s := New(0.05, 2.0)
	s.SetError(mgl64.Vec3{0.5, 0, 0}, mgl64.QuatIdent(), mgl64.Vec3{}, mgl64.QuatIdent())

	for i := 0; i < 600 && !s.Identity(); i++ {
		s.Decay(1.0 / 60.0)
	}
	if !s.Identity() {
		t.Fatal("offset never clamped to identity")
	}
	pos, rot := s.Offset()
	if pos != (mgl64.Vec3{}) || rot != mgl64.QuatIdent() {
		t.Fatalf("clamped offsets not identity: %v %v", pos, rot)
	}
}

func TestDecayRateIsFrameRateIndependent(t *testing.T) {
	coarse := New(0.1, 2.0)
	fine := New(0.1, 2.0)
	start := mgl64.Vec3{1, 0, 0}
	coarse.SetError(start, mgl64.QuatIdent(), mgl64.Vec3{}, mgl64.QuatIdent())
	fine.SetError(start, mgl64.QuatIdent(), mgl64.Vec3{}, mgl64.QuatIdent())

	// Same wall time, different frame counts.
	coarse.Decay(0.2)
	for i := 0; i < 20; i++ {
		fine.Decay(0.01)
	}

	co, _ := coarse.Offset()
	fo, _ := fine.Offset()
	if diff := math.Abs(co.Len() - fo.Len()); diff > 0.02 {
		t.Fatalf("decay diverges across frame rates: %v vs %v", co.Len(), fo.Len())
	}
}
