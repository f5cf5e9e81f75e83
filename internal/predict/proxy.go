package predict

import (
	"github.com/kurozael/netcode/internal/transport"
)

// Host-proxy side of the controller: queueing of remote inputs and the
// per-tick drain that simulates them authoritatively.

// queueInput stages a remote input, keeping the queue tick-monotonic. Inputs
// at or below the watermark are duplicates from the redundancy pairing or
// stale datagrams and are ignored.
func (c *Controller[I, S]) queueInput(in Input[I]) {
	if in.Tick <= c.lastQueuedTick {
		return
	}
	if c.queue.Push(in) {
		c.stats.DroppedInputs++
	}
	c.lastQueuedTick = in.Tick
}

// ProcessInputQueue implements tick.Controlled. It consumes up to
// MaxInputsPerTick staged inputs; when the stream has a hole the last known
// input is reused so the simulation stays deterministic under loss. The
// consumed-input bound keeps a backlogged client from monopolising the host
// tick.
func (c *Controller[I, S]) ProcessInputQueue() {
	if c.role != RoleProxiedHost || !c.ready() {
		return
	}

	consumed := 0
	for consumed < c.opts.MaxInputsPerTick {
		in, ok := c.queue.Pop()
		if !ok {
			return
		}
		if in.Tick < c.serverTick {
			c.stats.DroppedInputs++
			continue
		}

		if !c.haveServerInput {
			// First input from this client aligns the cursor.
			c.serverTick = in.Tick
		}
		for c.serverTick < in.Tick {
			c.sim.Simulate(c.lastServerInput.Payload, c.opts.TickInterval)
			c.serverTick++
			c.stats.GapFills++
			c.log.Debug("input gap filled", "tick", c.serverTick-1)
		}

		c.sim.Simulate(in.Payload, c.opts.TickInterval)
		c.lastServerInput = in
		c.haveServerInput = true
		snap := c.capture(in.Tick)
		c.serverTick = in.Tick + 1

		c.publishState(snap, transport.ToOwner(c.owner))
		c.publishState(snap, transport.ToObservers(c.owner))
		consumed++
	}
}
