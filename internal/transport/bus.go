// Package transport moves protocol envelopes between peers with routing
// filters. Delivery is best-effort and unordered; the engine's tick-monotonic
// guards provide the only ordering that matters.
package transport

import (
	"github.com/kurozael/netcode/internal/protocol"
)

// RouteKind selects the receiver set for a publish.
type RouteKind uint8

const (
	// RouteHost delivers to the host process.
	RouteHost RouteKind = iota
	// RouteOwner delivers to a single connection.
	RouteOwner
	// RouteObservers delivers to every peer except one connection.
	RouteObservers
)

// Route is the routing filter attached to every publish.
type Route struct {
	Kind  RouteKind
	Owner protocol.ConnID
}

// ToHost routes to the host.
func ToHost() Route {
	return Route{Kind: RouteHost}
}

// ToOwner routes to a single connection.
func ToOwner(conn protocol.ConnID) Route {
	return Route{Kind: RouteOwner, Owner: conn}
}

// ToObservers routes to every peer except conn. Pass protocol.ConnNone to
// reach everyone.
func ToObservers(except protocol.ConnID) Route {
	return Route{Kind: RouteObservers, Owner: except}
}

// Handler receives envelopes addressed to a subscribed entity.
type Handler interface {
	HandleEnvelope(env protocol.Envelope)
}

// TickHandler receives host tick beacons.
type TickHandler interface {
	HandleTick(tick uint64, serverTime float64)
}

// SessionHandler receives session-level traffic (join, welcome, spawn,
// despawn) that is not addressed to a specific entity subscription.
type SessionHandler interface {
	HandleSession(env protocol.Envelope)
}

// Bus is one peer's endpoint. Publish is non-blocking fire-and-forget; Pump
// delivers buffered inbound envelopes to subscribers on the calling
// goroutine, preserving the single-threaded cooperative model.
type Bus interface {
	// LocalID returns the connection identity of this endpoint. The host
	// uses HostID.
	LocalID() protocol.ConnID

	// Publish sends an envelope to the peers selected by route.
	Publish(env protocol.Envelope, route Route) error

	// Subscribe routes entity-addressed envelopes to h.
	Subscribe(entity protocol.EntityID, h Handler)

	// Unsubscribe removes an entity subscription.
	Unsubscribe(entity protocol.EntityID)

	// SubscribeTicks routes tick beacons to h.
	SubscribeTicks(h TickHandler)

	// SubscribeSession routes session-level envelopes to h.
	SubscribeSession(h SessionHandler)

	// Pump drains inbound traffic, invoking handlers on this goroutine.
	Pump()

	// Close releases the endpoint.
	Close() error
}

// HostID is the connection identity of the host endpoint.
const HostID protocol.ConnID = "host"

// dispatch fans one inbound envelope out to the right handler set. Shared by
// the loopback and websocket endpoints.
type dispatcher struct {
	handlers map[protocol.EntityID]Handler
	ticks    TickHandler
	session  SessionHandler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[protocol.EntityID]Handler)}
}

func (d *dispatcher) subscribe(entity protocol.EntityID, h Handler) {
	d.handlers[entity] = h
}

func (d *dispatcher) unsubscribe(entity protocol.EntityID) {
	delete(d.handlers, entity)
}

func (d *dispatcher) dispatch(env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgTick:
		if d.ticks == nil {
			return
		}
		var body protocol.Tick
		if err := protocol.Open(env, &body); err != nil {
			return
		}
		d.ticks.HandleTick(body.Tick, body.ServerTime)
	case protocol.MsgInput, protocol.MsgState:
		if h, ok := d.handlers[env.Entity]; ok {
			h.HandleEnvelope(env)
		}
	default:
		if d.session != nil {
			d.session.HandleSession(env)
		}
	}
}
