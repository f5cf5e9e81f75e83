package predict

// Reconciliation: compare an authoritative snapshot against what was
// predicted for the same tick, and when they disagree rewind to the
// authority and replay every later input.

// reconcile handles one authoritative snapshot on the controlled client.
func (c *Controller[I, S]) reconcile(server Snapshot[S]) Report {
	report := Report{ServerTick: server.Tick}

	// Out-of-order or duplicate snapshots fall behind the watermark.
	if server.Tick <= c.lastReconciled {
		c.stats.DroppedAcks++
		return report
	}

	// Without a prediction for this tick (history aged out, just became
	// local) there is nothing to compare; wait for a snapshot inside the
	// window.
	predicted, ok := c.states.Get(server.Tick)
	if !ok {
		c.stats.DroppedAcks++
		c.log.Debug("ack outside history window", "tick", server.Tick)
		return report
	}

	c.co.AcknowledgeTick(server.Tick)
	c.inputs.DropThrough(server.Tick)
	c.states.DropThrough(server.Tick)
	c.lastReconciled = server.Tick

	report.Error = predicted.Pos.Sub(server.Pos).Len()
	if c.snapshotsMatch(predicted, server) {
		return report
	}

	// Misprediction: remember what the player currently sees, snap the
	// simulation to the authority and replay the unacknowledged inputs.
	visPos, visRot := c.smoother.Visible(c.body.Position(), c.body.Rotation())
	c.smoother.Reset()
	c.apply(server)

	replay := c.inputs.Since(server.Tick)
	c.inputs.Clear()
	c.states.Clear()
	for _, in := range replay {
		c.sim.Simulate(in.Payload, c.opts.TickInterval)
		c.inputs.Push(in)
		c.states.Push(c.capture(in.Tick))
	}

	c.smoother.SetError(visPos, visRot, c.body.Position(), c.body.Rotation())

	report.Corrected = true
	report.Replayed = len(replay)
	c.stats.Corrections++
	c.stats.ReplayedTicks += uint64(len(replay))
	c.log.Debug("reconciled",
		"tick", server.Tick, "replayed", len(replay), "error", report.Error)

	if c.onReconcile != nil {
		c.onReconcile(server, predicted)
	}
	if r, ok := c.sim.(Reconciled[S]); ok {
		r.OnReconcile(server, predicted)
	}
	return report
}

// snapshotsMatch is the tolerance-based equality predicate. Matching
// checksums are trusted outright; otherwise positions must agree within
// ReconciliationTolerance and, if the simulator compares payloads, those
// must agree too.
func (c *Controller[I, S]) snapshotsMatch(a, b Snapshot[S]) bool {
	if a.Sum != 0 && b.Sum != 0 && a.Sum == b.Sum {
		return true
	}
	if a.Pos.Sub(b.Pos).Len() > c.opts.ReconciliationTolerance {
		return false
	}
	if pc, ok := c.sim.(PayloadComparer[S]); ok {
		return pc.PayloadEqual(a.Payload, b.Payload)
	}
	return true
}
