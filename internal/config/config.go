// Package config holds the engine tunables and their file representation.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Options tunes prediction, reconciliation and interpolation. Components use
// the values as given; Normalize (applied by Default and Load) fills unset
// fields with defaults. TickInterval is scene-wide, the rest may vary per
// controller.
type Options struct {
	// TickInterval is the fixed simulation step in seconds.
	TickInterval float64 `toml:"tick_interval"`
	// MaxTicksPerFrame bounds ticks simulated per render frame.
	MaxTicksPerFrame int `toml:"max_ticks_per_frame"`
	// TargetTickAhead is how many ticks a client runs ahead of the server.
	TargetTickAhead uint64 `toml:"target_tick_ahead"`
	// MaxTickDrift is the allowed deviation before a hard resync.
	MaxTickDrift uint64 `toml:"max_tick_drift"`
	// HistorySize caps every bounded buffer.
	HistorySize int `toml:"history_size"`
	// ReconciliationTolerance is the position distance treated as equal.
	ReconciliationTolerance float64 `toml:"reconciliation_tolerance"`
	// ErrorSmoothTime is the decay time constant for the visual offset.
	ErrorSmoothTime float64 `toml:"error_smooth_time"`
	// MaxVisualOffset is the correction size beyond which rendering snaps.
	MaxVisualOffset float64 `toml:"max_visual_offset"`
	// InterpolationDelay is how far in the past observers render.
	InterpolationDelay float64 `toml:"interpolation_delay"`
	// TeleportThreshold is the observer distance beyond which no
	// interpolation happens.
	TeleportThreshold float64 `toml:"teleport_threshold"`
	// MaxInputsPerTick bounds the host drain rate per controller.
	MaxInputsPerTick int `toml:"max_inputs_per_tick"`
}

// Default returns the documented defaults.
func Default() Options {
	return Options{}.Normalize()
}

// Normalize fills unset fields with defaults.
func (o Options) Normalize() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = 1.0 / 30.0
	}
	if o.MaxTicksPerFrame <= 0 {
		o.MaxTicksPerFrame = 5
	}
	if o.TargetTickAhead == 0 {
		o.TargetTickAhead = 2
	}
	if o.MaxTickDrift == 0 {
		o.MaxTickDrift = 30
	}
	if o.HistorySize <= 0 {
		o.HistorySize = 128
	}
	if o.ReconciliationTolerance <= 0 {
		o.ReconciliationTolerance = 0.1
	}
	if o.ErrorSmoothTime <= 0 {
		o.ErrorSmoothTime = 0.1
	}
	if o.MaxVisualOffset <= 0 {
		o.MaxVisualOffset = 2.0
	}
	if o.InterpolationDelay <= 0 {
		o.InterpolationDelay = 0.1
	}
	if o.TeleportThreshold <= 0 {
		o.TeleportThreshold = 5.0
	}
	if o.MaxInputsPerTick <= 0 {
		o.MaxInputsPerTick = 5
	}
	return o
}

// Load reads options from a TOML file and normalizes them.
func Load(path string) (Options, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read config: %w", err)
	}
	var o Options
	if err := toml.Unmarshal(contents, &o); err != nil {
		return Options{}, fmt.Errorf("decode config: %w", err)
	}
	return o.Normalize(), nil
}

// Save writes options to a TOML file.
func Save(path string, o Options) error {
	encoded, err := toml.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
