// Package runtime carries the process-level facts the engine needs injected:
// local identity, host flag, wall clock and logger. Nothing in the core reads
// process-wide state directly.
package runtime

import (
	"log/slog"
	"time"

	"github.com/kurozael/netcode/internal/protocol"
)

// Context is handed to the coordinator and controllers at construction.
type Context struct {
	ID   protocol.ConnID
	Host bool
	Log  *slog.Logger

	// NowFunc overrides the wall clock, used by tests to drive time.
	NowFunc func() time.Time

	epoch time.Time
}

// New builds a context. A nil logger falls back to slog.Default.
func New(id protocol.ConnID, host bool, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{
		ID:    id,
		Host:  host,
		Log:   log,
		epoch: time.Now(),
	}
}

// Now returns wall time in seconds since the context was created.
func (c *Context) Now() float64 {
	if c.NowFunc != nil {
		return c.NowFunc().Sub(c.epoch).Seconds()
	}
	return time.Since(c.epoch).Seconds()
}

// Logger returns the configured logger, never nil.
func (c *Context) Logger() *slog.Logger {
	if c == nil || c.Log == nil {
		return slog.Default()
	}
	return c.Log
}
