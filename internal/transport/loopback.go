package transport

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kurozael/netcode/internal/protocol"
)

// Loopback is an in-process network connecting one host endpoint with any
// number of client endpoints. Envelopes queue in per-endpoint inboxes until
// the receiver's Pump, so delivery order within a peer is stable while
// cross-peer timing stays under test control.
type Loopback struct {
	mu        sync.Mutex
	host      *loopbackEnd
	clients   map[protocol.ConnID]*loopbackEnd
	inboxSize int

	// DropFn, when set, discards matching envelopes in flight. Used by
	// tests to model packet loss.
	DropFn func(env protocol.Envelope, to protocol.ConnID) bool
}

// NewLoopback creates an empty loopback network.
func NewLoopback() *Loopback {
	return &Loopback{
		clients:   make(map[protocol.ConnID]*loopbackEnd),
		inboxSize: 256,
	}
}

// Host creates (or returns) the host endpoint.
func (n *Loopback) Host() Bus {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.host == nil {
		n.host = newLoopbackEnd(n, HostID)
	}
	return n.host
}

// Join creates a client endpoint with a fresh connection identity.
func (n *Loopback) Join() Bus {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := protocol.ConnID(uuid.NewString())
	end := newLoopbackEnd(n, id)
	n.clients[id] = end
	return end
}

// deliver queues env on the endpoint owning id. Missing endpoints and full
// inboxes drop silently: the loopback models an unreliable datagram path.
func (n *Loopback) deliver(env protocol.Envelope, to protocol.ConnID) {
	if n.DropFn != nil && n.DropFn(env, to) {
		return
	}
	n.mu.Lock()
	var end *loopbackEnd
	if to == HostID {
		end = n.host
	} else {
		end = n.clients[to]
	}
	n.mu.Unlock()
	if end == nil {
		return
	}
	end.enqueue(env)
}

// route resolves the receiver set for a publish from sender.
func (n *Loopback) route(sender protocol.ConnID, route Route) []protocol.ConnID {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch route.Kind {
	case RouteHost:
		return []protocol.ConnID{HostID}
	case RouteOwner:
		return []protocol.ConnID{route.Owner}
	case RouteObservers:
		out := make([]protocol.ConnID, 0, len(n.clients))
		for id := range n.clients {
			if id == route.Owner || id == sender {
				continue
			}
			out = append(out, id)
		}
		return out
	}
	return nil
}

// remove detaches a closed endpoint.
func (n *Loopback) remove(id protocol.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if id == HostID {
		n.host = nil
		return
	}
	delete(n.clients, id)
}

var _ Bus = (*loopbackEnd)(nil)

type loopbackEnd struct {
	net *Loopback
	id  protocol.ConnID

	mu     sync.Mutex
	inbox  []protocol.Envelope
	closed bool

	disp *dispatcher
}

func newLoopbackEnd(net *Loopback, id protocol.ConnID) *loopbackEnd {
	return &loopbackEnd{net: net, id: id, disp: newDispatcher()}
}

func (e *loopbackEnd) LocalID() protocol.ConnID {
	return e.id
}

func (e *loopbackEnd) Publish(env protocol.Envelope, route Route) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return fmt.Errorf("loopback endpoint %s closed", e.id)
	}
	env.From = e.id
	for _, to := range e.net.route(e.id, route) {
		e.net.deliver(env, to)
	}
	return nil
}

func (e *loopbackEnd) enqueue(env protocol.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || len(e.inbox) >= e.net.inboxSize {
		return
	}
	e.inbox = append(e.inbox, env)
}

func (e *loopbackEnd) Subscribe(entity protocol.EntityID, h Handler) {
	e.disp.subscribe(entity, h)
}

func (e *loopbackEnd) Unsubscribe(entity protocol.EntityID) {
	e.disp.unsubscribe(entity)
}

func (e *loopbackEnd) SubscribeTicks(h TickHandler) {
	e.disp.ticks = h
}

func (e *loopbackEnd) SubscribeSession(h SessionHandler) {
	e.disp.session = h
}

func (e *loopbackEnd) Pump() {
	e.mu.Lock()
	pending := e.inbox
	e.inbox = nil
	e.mu.Unlock()
	for _, env := range pending {
		e.disp.dispatch(env)
	}
}

func (e *loopbackEnd) Close() error {
	e.mu.Lock()
	e.closed = true
	e.inbox = nil
	e.mu.Unlock()
	e.net.remove(e.id)
	return nil
}
