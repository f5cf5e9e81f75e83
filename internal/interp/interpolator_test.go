package interp

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func entry(at float64, tick uint64, x float64) Entry {
	return Entry{At: at, Tick: tick, Pos: mgl64.Vec3{x, 0, 0}, Rot: mgl64.QuatIdent()}
}

func TestInterpolatesBetweenSnapshots(t *testing.T) {
	p := New(16, 0.1, 5.0)
	p.Insert(entry(1.0, 10, 0))
	p.Insert(entry(1.1, 11, 10))

	// now=1.15 -> renderTime=1.05, halfway between the two snapshots.
	pos, _, snap, ok := p.Sample(1.15, mgl64.Vec3{4, 0, 0})
	if !ok {
		t.Fatal("sample should succeed with buffered snapshots")
	}
	if snap {
		t.Fatal("short distance should not teleport")
	}
	if math.Abs(pos.X()-5.0) > 1e-9 {
		t.Fatalf("pos.X = %v, want 5.0", pos.X())
	}
}

func TestClampsOutsideBuffer(t *testing.T) {
	p := New(16, 0.1, 5.0)
	p.Insert(entry(2.0, 20, 1))
	p.Insert(entry(2.1, 21, 2))

	// Render time before the earliest entry snaps to earliest.
	pos, _, _, _ := p.Sample(1.0, mgl64.Vec3{1, 0, 0})
	if pos.X() != 1 {
		t.Fatalf("before-window pos.X = %v, want 1", pos.X())
	}

	// Render time after the latest entry snaps to latest.
	pos, _, _, _ = p.Sample(10.0, mgl64.Vec3{2, 0, 0})
	if pos.X() != 2 {
		t.Fatalf("after-window pos.X = %v, want 2", pos.X())
	}
}

func TestTeleportThreshold(t *testing.T) {
	p := New(16, 0.1, 5.0)
	p.Insert(entry(1.0, 1, 100))

	_, _, snap, ok := p.Sample(1.2, mgl64.Vec3{0, 0, 0})
	if !ok || !snap {
		t.Fatalf("distance 100 should teleport, snap=%v ok=%v", snap, ok)
	}

	_, _, snap, _ = p.Sample(1.2, mgl64.Vec3{98, 0, 0})
	if snap {
		t.Fatal("distance 2 should interpolate")
	}
}

func TestRejectsStaleTicks(t *testing.T) {
	p := New(16, 0.1, 5.0)
	if !p.Insert(entry(1.0, 5, 0)) {
		t.Fatal("first insert should succeed")
	}
	if p.Insert(entry(1.1, 5, 1)) {
		t.Fatal("equal tick must be discarded")
	}
	if p.Insert(entry(1.2, 4, 2)) {
		t.Fatal("older tick must be discarded")
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	p := New(4, 0.1, 5.0)
	for i := uint64(1); i <= 10; i++ {
		p.Insert(entry(float64(i), i, float64(i)))
	}
	if p.Len() != 4 {
		t.Fatalf("Len = %d, want 4", p.Len())
	}
	newest, _ := p.Newest()
	if newest.Tick != 10 {
		t.Fatalf("newest tick = %d, want 10", newest.Tick)
	}
}

func TestRotationBlends(t *testing.T) {
	p := New(16, 0.1, 5.0)
	a := entry(1.0, 1, 0)
	b := entry(1.1, 2, 0)
	b.Rot = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	p.Insert(a)
	p.Insert(b)

	_, rot, _, _ := p.Sample(1.15, mgl64.Vec3{})
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	if d := rot.Inverse().Mul(want).W; math.Abs(d) < math.Cos(0.01) {
		t.Fatalf("rotation not halfway: got %v want %v", rot, want)
	}
}
