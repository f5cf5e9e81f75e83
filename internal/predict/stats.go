package predict

// Stats counts what happened to a controller since creation. Counters only
// ever increase; read them from the update goroutine.
type Stats struct {
	// Predictions is the number of locally simulated ticks.
	Predictions uint64
	// Corrections is the number of mispredictions that rewound to the
	// authority, whether or not any later inputs were replayed.
	Corrections uint64
	// ReplayedTicks is the total number of re-simulated inputs.
	ReplayedTicks uint64
	// DroppedAcks counts authoritative snapshots discarded by the
	// watermark or by missing history.
	DroppedAcks uint64
	// GapFills counts host-side ticks simulated with a reused input.
	GapFills uint64
	// DroppedInputs counts stale or evicted remote inputs on the host.
	DroppedInputs uint64
}

// Report describes one reconciliation.
type Report struct {
	// ServerTick is the acknowledged tick.
	ServerTick uint64
	// Replayed is how many inputs were re-simulated.
	Replayed int
	// Error is the position distance between prediction and authority.
	Error float64
	// Corrected reports whether a rollback-and-replay happened.
	Corrected bool
}
