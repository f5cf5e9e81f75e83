package tick

import (
	"log/slog"

	"github.com/kurozael/netcode/internal/config"
	"github.com/kurozael/netcode/internal/protocol"
	"github.com/kurozael/netcode/internal/runtime"
	"github.com/kurozael/netcode/internal/transport"
)

// Controlled is what the coordinator needs from a controller. Controllers
// self-report their phase so the coordinator stays ignorant of roles.
type Controlled interface {
	// ProcessInputQueue drains and simulates queued remote inputs.
	// Called in phase one of every tick on host proxies.
	ProcessInputQueue()

	// Simulate builds input and advances one tick. Called in phase two
	// on locally controlled entities.
	Simulate()

	// UpdateVisuals runs the per-frame visual pass.
	UpdateVisuals(dt float64)

	// HostProxy reports whether this controller simulates a remote
	// player's entity on the host.
	HostProxy() bool

	// Local reports whether this entity is controlled by this process.
	Local() bool

	// Gone reports that the controller was destroyed and should be
	// swept before the next update pass.
	Gone() bool
}

// Coordinator owns the scene clock and dispatches ticks to registered
// controllers. All methods must be called from the engine update goroutine.
type Coordinator struct {
	rt   *runtime.Context
	opts config.Options
	bus  transport.Bus
	log  *slog.Logger

	clock       Clock
	controllers []Controlled
	pending     []Controlled
	members     map[Controlled]struct{}
}

// NewCoordinator builds a coordinator. bus may be nil for offline use; then
// no tick beacons are published or consumed.
func NewCoordinator(rt *runtime.Context, opts config.Options, bus transport.Bus) *Coordinator {
	co := &Coordinator{
		rt:      rt,
		opts:    opts,
		bus:     bus,
		log:     rt.Logger(),
		members: make(map[Controlled]struct{}),
	}
	if bus != nil {
		bus.SubscribeTicks(co)
	}
	return co
}

// Register adds a controller. Takes effect on the next frame; registering an
// already-known controller is a no-op.
func (co *Coordinator) Register(c Controlled) {
	if _, ok := co.members[c]; ok {
		return
	}
	co.members[c] = struct{}{}
	co.pending = append(co.pending, c)
}

// Unregister removes a controller at the next sweep.
func (co *Coordinator) Unregister(c Controlled) {
	delete(co.members, c)
}

// CurrentTick returns the next tick to simulate.
func (co *Coordinator) CurrentTick() uint64 { return co.clock.CurrentTick() }

// ServerTick returns the last known server tick.
func (co *Coordinator) ServerTick() uint64 { return co.clock.ServerTick() }

// LastAckTick returns the highest acknowledged tick.
func (co *Coordinator) LastAckTick() uint64 { return co.clock.LastAckTick() }

// Synchronized reports whether the clock is locked to the server.
func (co *Coordinator) Synchronized() bool {
	return co.rt.Host || co.clock.Synchronized()
}

// Options returns the scene options.
func (co *Coordinator) Options() config.Options { return co.opts }

// Runtime returns the injected process context.
func (co *Coordinator) Runtime() *runtime.Context { return co.rt }

// AcknowledgeTick raises the ack watermark.
func (co *Coordinator) AcknowledgeTick(t uint64) {
	co.clock.Acknowledge(t)
}

// UpdateServerTick feeds a newly observed server tick into the clock. On
// first sight the client locks on TargetTickAhead ticks ahead; afterwards a
// deviation outside [0, MaxTickDrift] forces a hard resync.
func (co *Coordinator) UpdateServerTick(t uint64) {
	if co.rt.Host {
		return
	}
	c := &co.clock
	if t <= c.server {
		return
	}
	c.server = t
	if !c.synced {
		c.current = c.server + co.opts.TargetTickAhead
		c.synced = true
		co.log.Debug("clock synchronized", "serverTick", c.server, "currentTick", c.current)
		return
	}
	if c.current < c.server || c.current-c.server > co.opts.MaxTickDrift {
		co.log.Warn("tick drift outside window, resyncing",
			"currentTick", c.current, "serverTick", c.server, "maxDrift", co.opts.MaxTickDrift)
		c.current = c.server + co.opts.TargetTickAhead
		c.acc = 0
	}
}

// HandleTick implements transport.TickHandler.
func (co *Coordinator) HandleTick(t uint64, _ float64) {
	co.UpdateServerTick(t)
}

// Update is the per-frame driver: consume whole ticks from the accumulated
// frame time, then run the visual pass on every controller.
func (co *Coordinator) Update(frameDelta float64) {
	co.admit()
	co.sweep()

	if !co.rt.Host && !co.clock.Synchronized() {
		return
	}

	c := &co.clock
	c.acc += frameDelta

	interval := co.opts.TickInterval
	ticked := 0
	for c.acc >= interval && ticked < co.opts.MaxTicksPerFrame {
		co.runTick()
		ticked++
	}
	if c.acc > interval*float64(co.opts.MaxTicksPerFrame) {
		c.acc = 0
	}

	if co.rt.Host && ticked > 0 {
		co.publishTick()
	}

	for _, ctrl := range co.controllers {
		ctrl.UpdateVisuals(frameDelta)
	}
}

// runTick executes one fixed step: host proxies drain remote inputs first so
// broadcast states reflect every input dispatched this tick, then local
// controllers simulate.
func (co *Coordinator) runTick() {
	for _, ctrl := range co.controllers {
		if ctrl.HostProxy() {
			ctrl.ProcessInputQueue()
		}
	}
	for _, ctrl := range co.controllers {
		if ctrl.Local() {
			ctrl.Simulate()
		}
	}
	co.clock.advance(co.opts.TickInterval)
	if co.rt.Host {
		co.clock.server = co.clock.current
	}
}

func (co *Coordinator) publishTick() {
	if co.bus == nil {
		return
	}
	env, err := protocol.Seal(protocol.MsgTick, 0, co.rt.ID, protocol.Tick{
		Tick:       co.clock.current,
		ServerTime: co.rt.Now(),
	})
	if err != nil {
		return
	}
	if err := co.bus.Publish(env, transport.ToObservers(protocol.ConnNone)); err != nil {
		co.log.Debug("tick beacon dropped", "err", err)
	}
}

// admit moves pending registrations into the active set.
func (co *Coordinator) admit() {
	if len(co.pending) == 0 {
		return
	}
	for _, c := range co.pending {
		if _, ok := co.members[c]; ok {
			co.controllers = append(co.controllers, c)
		}
	}
	co.pending = co.pending[:0]
}

// Ensure the coordinator can sit on a bus tick subscription.
var _ transport.TickHandler = (*Coordinator)(nil)

// sweep lazily removes destroyed or unregistered controllers.
func (co *Coordinator) sweep() {
	kept := co.controllers[:0]
	for _, c := range co.controllers {
		if c.Gone() {
			delete(co.members, c)
			continue
		}
		if _, ok := co.members[c]; !ok {
			continue
		}
		kept = append(kept, c)
	}
	co.controllers = kept
}
