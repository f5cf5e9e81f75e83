package predict

import (
	"log/slog"

	"github.com/kurozael/netcode/internal/config"
	"github.com/kurozael/netcode/internal/history"
	"github.com/kurozael/netcode/internal/interp"
	"github.com/kurozael/netcode/internal/protocol"
	"github.com/kurozael/netcode/internal/runtime"
	"github.com/kurozael/netcode/internal/smooth"
	"github.com/kurozael/netcode/internal/tick"
	"github.com/kurozael/netcode/internal/transport"
)

// ControllerConfig wires a controller to its entity and collaborators.
type ControllerConfig[I, S any] struct {
	Entity      protocol.EntityID
	Owner       protocol.ConnID
	Runtime     *runtime.Context
	Coordinator *tick.Coordinator
	Bus         transport.Bus
	Simulator   Simulator[I, S]
	Body        Body
	Options     config.Options

	// OnReconcile is invoked once per correction with the authoritative
	// and the mispredicted snapshot.
	OnReconcile func(server, predicted Snapshot[S])
}

// Controller runs the prediction state machine for one entity. It owns the
// entity's histories and visual offset exclusively; all methods must be
// called from the engine update goroutine.
type Controller[I, S any] struct {
	entity protocol.EntityID
	owner  protocol.ConnID
	rt     *runtime.Context
	co     *tick.Coordinator
	bus    transport.Bus
	sim    Simulator[I, S]
	body   Body
	opts   config.Options
	log    *slog.Logger

	role Role

	// Local controller state.
	inputs         *history.Ring[Input[I]]
	states         *history.Ring[Snapshot[S]]
	prevInput      Input[I]
	havePrev       bool
	lastReconciled uint64

	// Host proxy state.
	queue           *history.Queue[Input[I]]
	lastServerInput Input[I]
	haveServerInput bool
	serverTick      uint64
	lastQueuedTick  uint64

	// Observer state.
	itp *interp.Interpolator

	smoother *smooth.Smoother

	onReconcile func(server, predicted Snapshot[S])
	stats       Stats
	warnedNoSim bool
	gone        bool
}

// NewController builds a controller, subscribes it to its entity's traffic
// and registers it with the coordinator.
func NewController[I, S any](cfg ControllerConfig[I, S]) *Controller[I, S] {
	c := &Controller[I, S]{
		entity:      cfg.Entity,
		rt:          cfg.Runtime,
		co:          cfg.Coordinator,
		bus:         cfg.Bus,
		sim:         cfg.Simulator,
		body:        cfg.Body,
		opts:        cfg.Options,
		log:         cfg.Runtime.Logger().With("entity", uint64(cfg.Entity)),
		inputs:      history.NewRing[Input[I]](cfg.Options.HistorySize),
		states:      history.NewRing[Snapshot[S]](cfg.Options.HistorySize),
		queue:       history.NewQueue[Input[I]](cfg.Options.HistorySize),
		itp:         interp.New(cfg.Options.HistorySize, cfg.Options.InterpolationDelay, cfg.Options.TeleportThreshold),
		smoother:    smooth.New(cfg.Options.ErrorSmoothTime, cfg.Options.MaxVisualOffset),
		onReconcile: cfg.OnReconcile,
	}
	c.setOwner(cfg.Owner)
	if c.sim == nil {
		c.log.Warn("controller has no simulator, staying inert")
		c.warnedNoSim = true
	}
	if c.bus != nil {
		c.bus.Subscribe(c.entity, c)
	}
	c.co.Register(c)
	return c
}

// Entity returns the controlled entity's id.
func (c *Controller[I, S]) Entity() protocol.EntityID { return c.entity }

// Owner returns the controlling connection, ConnNone while dormant.
func (c *Controller[I, S]) Owner() protocol.ConnID { return c.owner }

// Role returns the controller's current role.
func (c *Controller[I, S]) Role() Role { return c.role }

// Stats returns a copy of the controller's counters.
func (c *Controller[I, S]) Stats() Stats { return c.stats }

// SetSimulator attaches a simulator; an inert controller comes alive.
func (c *Controller[I, S]) SetSimulator(sim Simulator[I, S]) {
	c.sim = sim
	c.warnedNoSim = false
}

// SetOwner installs the replicated controlling connection. The host assigns
// it once; everywhere else it arrives through replication.
func (c *Controller[I, S]) SetOwner(owner protocol.ConnID) {
	c.setOwner(owner)
}

// setOwner recomputes the role. Entering a role re-initializes the state
// that role relies on; captured history from the old role ages out.
func (c *Controller[I, S]) setOwner(owner protocol.ConnID) {
	c.owner = owner
	next := resolveRole(c.rt.Host, c.rt.ID, owner)
	if next == c.role {
		return
	}
	prev := c.role
	c.role = next
	switch next {
	case RoleLocalClient:
		c.inputs.Clear()
		c.states.Clear()
		c.havePrev = false
		c.lastReconciled = 0
		c.smoother.Reset()
	case RoleProxiedHost:
		c.queue.Clear()
		c.haveServerInput = false
		c.serverTick = 0
		c.lastQueuedTick = 0
	case RoleRemoteObserver:
		c.itp.Clear()
	case RoleLocalHost:
		c.smoother.Reset()
	}
	c.log.Debug("controller role changed", "from", prev.String(), "to", next.String())
}

// Destroy detaches the controller. The coordinator sweeps it before the
// next update pass.
func (c *Controller[I, S]) Destroy() {
	if c.gone {
		return
	}
	c.gone = true
	if c.bus != nil {
		c.bus.Unsubscribe(c.entity)
	}
	c.co.Unregister(c)
}

// Gone implements tick.Controlled.
func (c *Controller[I, S]) Gone() bool { return c.gone }

// HostProxy implements tick.Controlled.
func (c *Controller[I, S]) HostProxy() bool { return c.role == RoleProxiedHost }

// Local implements tick.Controlled.
func (c *Controller[I, S]) Local() bool {
	return c.role == RoleLocalClient || c.role == RoleLocalHost
}

// Simulate implements tick.Controlled: build the tick's input, advance the
// simulation one fixed step and publish.
func (c *Controller[I, S]) Simulate() {
	if !c.Local() || !c.ready() {
		return
	}

	var payload I
	c.sim.BuildInput(&payload)
	in := Input[I]{Tick: c.co.CurrentTick(), Payload: payload}

	c.sim.Simulate(in.Payload, c.opts.TickInterval)
	snap := c.capture(in.Tick)
	c.stats.Predictions++

	switch c.role {
	case RoleLocalHost:
		c.publishState(snap, transport.ToObservers(c.owner))
	case RoleLocalClient:
		c.inputs.Push(in)
		c.states.Push(snap)
		c.publishInput(in)
		c.prevInput = in
		c.havePrev = true
	}
}

// UpdateVisuals implements tick.Controlled.
func (c *Controller[I, S]) UpdateVisuals(dt float64) {
	switch c.role {
	case RoleLocalClient, RoleLocalHost:
		c.smoother.Decay(dt)
		if rb, ok := c.body.(Renderable); ok {
			pos, rot := c.smoother.Visible(c.body.Position(), c.body.Rotation())
			rb.SetRenderTransform(pos, rot)
		}
	case RoleRemoteObserver:
		c.observe()
	case RoleProxiedHost:
		if rb, ok := c.body.(Renderable); ok {
			rb.SetRenderTransform(c.body.Position(), c.body.Rotation())
		}
	}
}

// observe runs the delayed interpolation pass.
func (c *Controller[I, S]) observe() {
	pos, rot, snap, ok := c.itp.Sample(c.rt.Now(), c.body.Position())
	if !ok {
		return
	}
	if snap {
		if newest, ok := c.itp.Newest(); ok {
			pos, rot = newest.Pos, newest.Rot
		}
	}
	c.body.SetPosition(pos)
	c.body.SetRotation(rot)
	if rb, ok := c.body.(Renderable); ok {
		rb.SetRenderTransform(pos, rot)
	}
}

// HandleEnvelope implements transport.Handler, fanning inbound traffic to
// the role-appropriate path. Anything else is a benign drop.
func (c *Controller[I, S]) HandleEnvelope(env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgInput:
		if c.role != RoleProxiedHost {
			return
		}
		var msg inputMsg[I]
		if err := protocol.Open(env, &msg); err != nil {
			c.log.Debug("bad input message", "err", err)
			return
		}
		if msg.Prev != nil {
			c.queueInput(*msg.Prev)
		}
		c.queueInput(msg.Input)
	case protocol.MsgState:
		var msg stateMsg[S]
		if err := protocol.Open(env, &msg); err != nil {
			c.log.Debug("bad state message", "err", err)
			return
		}
		switch c.role {
		case RoleLocalClient:
			c.co.UpdateServerTick(msg.Snapshot.Tick)
			c.reconcile(msg.Snapshot)
		case RoleRemoteObserver:
			c.co.UpdateServerTick(msg.Snapshot.Tick)
			c.itp.Insert(interp.Entry{
				At:   c.rt.Now(),
				Tick: msg.Snapshot.Tick,
				Pos:  msg.Snapshot.Pos,
				Rot:  msg.Snapshot.Rot,
			})
		}
	}
}

// ready reports whether the controller can simulate, warning once when the
// simulator is missing.
func (c *Controller[I, S]) ready() bool {
	if c.sim != nil {
		return true
	}
	if !c.warnedNoSim {
		c.log.Warn("controller has no simulator, staying inert")
		c.warnedNoSim = true
	}
	return false
}

// capture snapshots the entity after a simulated tick.
func (c *Controller[I, S]) capture(tickNo uint64) Snapshot[S] {
	snap := Snapshot[S]{
		Tick: tickNo,
		At:   c.rt.Now(),
		Pos:  c.body.Position(),
		Rot:  c.body.Rotation(),
	}
	c.sim.WriteState(&snap.Payload)
	if cs, ok := c.sim.(Checksummer[S]); ok {
		snap.Sum = cs.Checksum(snap.Payload)
	}
	return snap
}

// apply installs an authoritative snapshot into the entity.
func (c *Controller[I, S]) apply(snap Snapshot[S]) {
	c.body.SetPosition(snap.Pos)
	c.body.SetRotation(snap.Rot)
	c.sim.ReadState(snap.Payload)
}

func (c *Controller[I, S]) publishInput(in Input[I]) {
	if c.bus == nil {
		return
	}
	msg := inputMsg[I]{Input: in}
	if c.havePrev {
		prev := c.prevInput
		msg.Prev = &prev
	}
	env, err := protocol.Seal(protocol.MsgInput, c.entity, c.rt.ID, msg)
	if err != nil {
		c.log.Debug("input encode failed", "err", err)
		return
	}
	if err := c.bus.Publish(env, transport.ToHost()); err != nil {
		c.log.Debug("input publish dropped", "err", err)
	}
}

func (c *Controller[I, S]) publishState(snap Snapshot[S], route transport.Route) {
	if c.bus == nil {
		return
	}
	env, err := protocol.Seal(protocol.MsgState, c.entity, c.rt.ID, stateMsg[S]{Snapshot: snap})
	if err != nil {
		c.log.Debug("state encode failed", "err", err)
		return
	}
	if err := c.bus.Publish(env, route); err != nil {
		c.log.Debug("state publish dropped", "err", err)
	}
}

// Ensure Controller satisfies the coordinator and transport contracts.
var (
	_ tick.Controlled   = (*Controller[struct{}, struct{}])(nil)
	_ transport.Handler = (*Controller[struct{}, struct{}])(nil)
)
