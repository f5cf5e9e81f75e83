package config

import (
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	o := Default()

	if got, want := o.TickInterval, 1.0/30.0; got != want {
		t.Fatalf("TickInterval = %v, want %v", got, want)
	}
	if o.MaxTicksPerFrame != 5 {
		t.Fatalf("MaxTicksPerFrame = %d, want 5", o.MaxTicksPerFrame)
	}
	if o.TargetTickAhead != 2 {
		t.Fatalf("TargetTickAhead = %d, want 2", o.TargetTickAhead)
	}
	if o.MaxTickDrift != 30 {
		t.Fatalf("MaxTickDrift = %d, want 30", o.MaxTickDrift)
	}
	if o.HistorySize != 128 {
		t.Fatalf("HistorySize = %d, want 128", o.HistorySize)
	}
	if o.ReconciliationTolerance != 0.1 {
		t.Fatalf("ReconciliationTolerance = %v, want 0.1", o.ReconciliationTolerance)
	}
	if o.ErrorSmoothTime != 0.1 {
		t.Fatalf("ErrorSmoothTime = %v, want 0.1", o.ErrorSmoothTime)
	}
	if o.MaxVisualOffset != 2.0 {
		t.Fatalf("MaxVisualOffset = %v, want 2", o.MaxVisualOffset)
	}
	if o.InterpolationDelay != 0.1 {
		t.Fatalf("InterpolationDelay = %v, want 0.1", o.InterpolationDelay)
	}
	if o.TeleportThreshold != 5.0 {
		t.Fatalf("TeleportThreshold = %v, want 5", o.TeleportThreshold)
	}
	if o.MaxInputsPerTick != 5 {
		t.Fatalf("MaxInputsPerTick = %d, want 5", o.MaxInputsPerTick)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	o := Options{
		TickInterval: 1.0 / 60.0,
		HistorySize:  64,
	}.Normalize()

	if got, want := o.TickInterval, 1.0/60.0; got != want {
		t.Fatalf("TickInterval = %v, want %v", got, want)
	}
	if o.HistorySize != 64 {
		t.Fatalf("HistorySize = %d, want 64", o.HistorySize)
	}
	// Untouched fields still pick up defaults.
	if o.MaxTicksPerFrame != 5 {
		t.Fatalf("MaxTicksPerFrame = %d, want 5", o.MaxTicksPerFrame)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netcode.toml")

	want := Default()
	want.TickInterval = 0.05
	want.HistorySize = 32
	want.TeleportThreshold = 12.5

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
