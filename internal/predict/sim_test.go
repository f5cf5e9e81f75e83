package predict

import (
	"io"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/kurozael/netcode/internal/config"
	"github.com/kurozael/netcode/internal/protocol"
	"github.com/kurozael/netcode/internal/runtime"
	"github.com/kurozael/netcode/internal/tick"
)

// testInput drives the 1-D test mover.
type testInput struct {
	Move float64 `json:"move"`
}

// testState is the mover's custom payload.
type testState struct {
	Vel float64 `json:"vel"`
}

// testBody is a transform holder that also records render-pass output.
type testBody struct {
	pos       mgl64.Vec3
	rot       mgl64.Quat
	renderPos mgl64.Vec3
	renderRot mgl64.Quat
	rendered  bool
}

func newTestBody() *testBody {
	return &testBody{rot: mgl64.QuatIdent(), renderRot: mgl64.QuatIdent()}
}

func (b *testBody) Position() mgl64.Vec3     { return b.pos }
func (b *testBody) SetPosition(p mgl64.Vec3) { b.pos = p }
func (b *testBody) Rotation() mgl64.Quat     { return b.rot }
func (b *testBody) SetRotation(r mgl64.Quat) { b.rot = r }

func (b *testBody) SetRenderTransform(p mgl64.Vec3, r mgl64.Quat) {
	b.renderPos = p
	b.renderRot = r
	b.rendered = true
}

// testSim moves its body along X at next*speed units per second. Fully
// deterministic with respect to (input, state).
type testSim struct {
	body  *testBody
	speed float64
	vel   float64

	// next is the scripted control value picked up by BuildInput.
	next float64
}

func newTestSim(body *testBody) *testSim {
	return &testSim{body: body, speed: 32.0}
}

func (s *testSim) BuildInput(in *testInput) { in.Move = s.next }

func (s *testSim) Simulate(in testInput, dt float64) {
	s.vel = in.Move * s.speed
	s.body.pos[0] += s.vel * dt
}

func (s *testSim) WriteState(st *testState) { st.Vel = s.vel }
func (s *testSim) ReadState(st testState)   { s.vel = st.Vel }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clientRig is a synchronized local-client controller with no bus attached,
// for driving reconciliation directly.
type clientRig struct {
	rt   *runtime.Context
	co   *tick.Coordinator
	body *testBody
	sim  *testSim
	ctrl *Controller[testInput, testState]
}

func newClientRig(opts config.Options, onReconcile func(server, predicted Snapshot[testState])) *clientRig {
	// A dyadic interval keeps speed*dt arithmetic exact, so the unit tests
	// can assert positions with equality: one full-move tick is 1.0.
	opts.TickInterval = 1.0 / 32.0

	rt := runtime.New(protocol.ConnID("client-1"), false, quietLogger())
	co := tick.NewCoordinator(rt, opts, nil)
	co.UpdateServerTick(98) // current tick locks on 98 + TargetTickAhead = 100

	body := newTestBody()
	sim := newTestSim(body)
	ctrl := NewController(ControllerConfig[testInput, testState]{
		Entity:      1,
		Owner:       protocol.ConnID("client-1"),
		Runtime:     rt,
		Coordinator: co,
		Simulator:   sim,
		Body:        body,
		Options:     opts,
		OnReconcile: onReconcile,
	})
	return &clientRig{rt: rt, co: co, body: body, sim: sim, ctrl: ctrl}
}

// run simulates n ticks with the scripted move value.
func (r *clientRig) run(n int, move float64) {
	r.sim.next = move
	for i := 0; i < n; i++ {
		r.co.Update(r.co.Options().TickInterval)
	}
}

// serverSnap builds an authoritative snapshot for the rig's entity.
func serverSnap(tickNo uint64, x, vel float64) Snapshot[testState] {
	return Snapshot[testState]{
		Tick:    tickNo,
		Pos:     mgl64.Vec3{x, 0, 0},
		Rot:     mgl64.QuatIdent(),
		Payload: testState{Vel: vel},
	}
}
