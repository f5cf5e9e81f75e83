// Package interp renders remote entities a fixed delay in the past,
// interpolating between buffered authoritative snapshots so network jitter
// never reaches the screen.
package interp

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Entry is one buffered remote snapshot. At is the local arrival time in
// seconds; host wall time is not comparable across machines, so buffering is
// keyed by when the snapshot reached this process.
type Entry struct {
	At   float64
	Tick uint64
	Pos  mgl64.Vec3
	Rot  mgl64.Quat
}

// Interpolator buffers snapshots for one observed entity.
type Interpolator struct {
	entries  []Entry
	capacity int

	delay    float64
	teleport float64
}

// New creates an interpolator. delay is how far in the past to render,
// teleport the distance beyond which interpolation is skipped.
func New(capacity int, delay, teleport float64) *Interpolator {
	if capacity < 2 {
		capacity = 2
	}
	return &Interpolator{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		delay:    delay,
		teleport: teleport,
	}
}

// Insert buffers a snapshot. Snapshots that do not advance the newest tick
// are discarded.
func (p *Interpolator) Insert(e Entry) bool {
	if n := len(p.entries); n > 0 && e.Tick <= p.entries[n-1].Tick {
		return false
	}
	if len(p.entries) >= p.capacity {
		copy(p.entries, p.entries[1:])
		p.entries = p.entries[:len(p.entries)-1]
	}
	p.entries = append(p.entries, e)
	return true
}

// Sample computes the transform to show at local time now. current is the
// entity's present transform, used for the teleport check. The returned
// snap reports that the target is too far to interpolate toward.
func (p *Interpolator) Sample(now float64, current mgl64.Vec3) (pos mgl64.Vec3, rot mgl64.Quat, snap, ok bool) {
	if len(p.entries) == 0 {
		return mgl64.Vec3{}, mgl64.QuatIdent(), false, false
	}

	renderTime := now - p.delay
	pos, rot = p.target(renderTime)

	if current.Sub(pos).Len() > p.teleport {
		snap = true
	}
	return pos, rot, snap, true
}

// target selects the bracketing pair for renderTime and blends them.
func (p *Interpolator) target(renderTime float64) (mgl64.Vec3, mgl64.Quat) {
	first := p.entries[0]
	last := p.entries[len(p.entries)-1]

	if renderTime <= first.At {
		return first.Pos, first.Rot
	}
	if renderTime >= last.At {
		return last.Pos, last.Rot
	}

	for i := 1; i < len(p.entries); i++ {
		a, b := p.entries[i-1], p.entries[i]
		if renderTime > b.At {
			continue
		}
		span := b.At - a.At
		if span <= 0 {
			return b.Pos, b.Rot
		}
		t := (renderTime - a.At) / span
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		pos := a.Pos.Add(b.Pos.Sub(a.Pos).Mul(t))
		rot := mgl64.QuatSlerp(a.Rot, b.Rot, t)
		return pos, rot
	}
	return last.Pos, last.Rot
}

// Len reports the number of buffered snapshots.
func (p *Interpolator) Len() int {
	return len(p.entries)
}

// Newest returns the most recent buffered snapshot.
func (p *Interpolator) Newest() (Entry, bool) {
	if len(p.entries) == 0 {
		return Entry{}, false
	}
	return p.entries[len(p.entries)-1], true
}

// Clear drops all buffered snapshots.
func (p *Interpolator) Clear() {
	p.entries = p.entries[:0]
}
