// Package tick keeps the scene-wide simulation clock and drives every
// controller through the fixed-step tick and per-frame visual passes.
package tick

// Clock tracks the monotonic tick counters and the fixed-step accumulator.
// Invariants: lastAck <= server, and on a synchronized client
// server <= current <= server + MaxTickDrift.
type Clock struct {
	current uint64
	lastAck uint64
	server  uint64
	synced  bool
	acc     float64
}

// CurrentTick returns the next tick to simulate.
func (c *Clock) CurrentTick() uint64 { return c.current }

// LastAckTick returns the highest acknowledged server tick.
func (c *Clock) LastAckTick() uint64 { return c.lastAck }

// ServerTick returns the last known server tick.
func (c *Clock) ServerTick() uint64 { return c.server }

// Synchronized reports whether the clock has locked onto the server.
func (c *Clock) Synchronized() bool { return c.synced }

// Accumulator returns the unconsumed frame time in seconds.
func (c *Clock) Accumulator() float64 { return c.acc }

// Acknowledge raises the ack watermark; it never moves backward.
func (c *Clock) Acknowledge(t uint64) {
	if t > c.lastAck {
		c.lastAck = t
	}
}

// advance consumes one tick interval worth of accumulated time.
func (c *Clock) advance(interval float64) {
	c.current++
	c.acc -= interval
}
