package game

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/kurozael/netcode/internal/collision"
)

// Movement tuning, in tiles and seconds. Integration uses the dt handed to
// Simulate, never wall time, so replays reproduce the original trajectory
// bit for bit.
const (
	moveSpeed    = 12.0
	jumpSpeed    = 16.0
	gravity      = 40.0
	maxFallSpeed = 30.0

	avatarWidth  = 0.8
	avatarHeight = 0.9
	groundProbe  = 0.05
)

// Avatar is one controllable mover. It implements the prediction engine's
// Simulator and Body contracts over its ECS components.
type Avatar struct {
	world  *World
	entity ecs.Entity
	name   string

	// intent is the latest control state fed from input capture.
	intent Intent

	rot mgl64.Quat
}

// Name returns the avatar's display name.
func (a *Avatar) Name() string { return a.name }

// SetIntent stores the control state picked up by the next BuildInput.
func (a *Avatar) SetIntent(intent Intent) {
	a.intent = intent
}

// BuildInput fills the tick's input from the captured intent.
func (a *Avatar) BuildInput(in *MoveInput) {
	in.Intents = a.intent
}

// Simulate advances the mover by dt with axis-separated tile collision.
func (a *Avatar) Simulate(in MoveInput, dt float64) {
	pos, vel, grounded, _ := a.world.movers.Get(a.entity)

	switch {
	case in.Intents&IntentLeft != 0:
		vel.X = -moveSpeed
	case in.Intents&IntentRight != 0:
		vel.X = moveSpeed
	default:
		vel.X = 0
	}

	if in.Intents&IntentJump != 0 && grounded.OnGround {
		vel.Y = -jumpSpeed
		grounded.OnGround = false
	}

	vel.Y += gravity * dt
	if vel.Y > maxFallSpeed {
		vel.Y = maxFallSpeed
	}

	tiles := a.world.tiles

	// Horizontal, then vertical, so sliding along walls works.
	nx := pos.X + vel.X*dt
	if tiles.SolidInBox(collision.NewAABB(nx, pos.Y, avatarWidth, avatarHeight)) {
		vel.X = 0
	} else {
		pos.X = nx
	}

	ny := pos.Y + vel.Y*dt
	if tiles.SolidInBox(collision.NewAABB(pos.X, ny, avatarWidth, avatarHeight)) {
		if vel.Y > 0 {
			grounded.OnGround = true
		}
		vel.Y = 0
	} else {
		pos.Y = ny
		grounded.OnGround = tiles.SolidInBox(collision.NewAABB(pos.X, pos.Y+groundProbe, avatarWidth, avatarHeight))
	}
}

// WriteState captures the mover's simulation state.
func (a *Avatar) WriteState(st *MoveState) {
	pos, vel, grounded, _ := a.world.movers.Get(a.entity)
	st.PosX = pos.X
	st.PosY = pos.Y
	st.VelX = vel.X
	st.VelY = vel.Y
	st.Grounded = grounded.OnGround
}

// ReadState restores previously captured state.
func (a *Avatar) ReadState(st MoveState) {
	pos, vel, grounded, _ := a.world.movers.Get(a.entity)
	pos.X = st.PosX
	pos.Y = st.PosY
	vel.X = st.VelX
	vel.Y = st.VelY
	grounded.OnGround = st.Grounded
}

// Checksum implements the engine's checksum probe.
func (a *Avatar) Checksum(st MoveState) uint64 {
	return st.Checksum()
}

// Position implements the engine's Body contract.
func (a *Avatar) Position() mgl64.Vec3 {
	pos, _, _, _ := a.world.movers.Get(a.entity)
	return mgl64.Vec3{pos.X, pos.Y, 0}
}

// SetPosition implements the engine's Body contract.
func (a *Avatar) SetPosition(p mgl64.Vec3) {
	pos, _, _, _ := a.world.movers.Get(a.entity)
	pos.X = p.X()
	pos.Y = p.Y()
}

// Rotation implements the engine's Body contract. The arena is 2-D, so the
// rotation stays identity unless authority says otherwise.
func (a *Avatar) Rotation() mgl64.Quat {
	if a.rot.W == 0 && a.rot.V == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return a.rot
}

// SetRotation implements the engine's Body contract.
func (a *Avatar) SetRotation(r mgl64.Quat) {
	a.rot = r
}

// SetRenderTransform implements the engine's Renderable contract.
func (a *Avatar) SetRenderTransform(p mgl64.Vec3, _ mgl64.Quat) {
	_, _, _, render := a.world.movers.Get(a.entity)
	render.X = p.X()
	render.Y = p.Y()
}

// RenderPosition returns the transform drawing should use.
func (a *Avatar) RenderPosition() (float64, float64) {
	_, _, _, render := a.world.movers.Get(a.entity)
	return render.X, render.Y
}
