package transport

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kurozael/netcode/internal/protocol"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 64
	inboxLimit    = 1024
)

// Both endpoints implement the Bus contract.
var (
	_ Bus = (*WSHost)(nil)
	_ Bus = (*WSClient)(nil)
)

// WSHost is the host-side bus over websocket. Each accepted socket gets a
// connection identity, a buffered send queue and a writer goroutine; a full
// queue drops frames, matching the best-effort contract.
type WSHost struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	peers  map[protocol.ConnID]*wsPeer
	inbox  []hostEvent
	closed bool

	disp *dispatcher

	// OnDisconnect is invoked from Pump when a peer's socket dies.
	OnDisconnect func(conn protocol.ConnID)
}

type hostEvent struct {
	env  protocol.Envelope
	gone protocol.ConnID
}

type wsPeer struct {
	id   protocol.ConnID
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan protocol.Envelope
	closed bool
}

// NewWSHost creates the host endpoint. Mount it on an HTTP mux and serve.
func NewWSHost() *WSHost {
	return &WSHost{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[protocol.ConnID]*wsPeer),
		disp:  newDispatcher(),
	}
}

// ServeHTTP upgrades an incoming connection and starts its pumps.
func (h *WSHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	peer := &wsPeer{
		id:   protocol.ConnID(uuid.NewString()),
		conn: conn,
		send: make(chan protocol.Envelope, sendQueueSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.peers[peer.id] = peer
	h.mu.Unlock()

	go h.writePump(peer)
	go h.readPump(peer)

	hello, err := protocol.Seal(protocol.MsgHello, 0, HostID, protocol.Hello{ConnID: peer.id})
	if err == nil {
		peer.offer(hello)
	}
}

func (h *WSHost) readPump(peer *wsPeer) {
	defer h.drop(peer)
	for {
		var env protocol.Envelope
		if err := peer.conn.ReadJSON(&env); err != nil {
			return
		}
		env.From = peer.id
		h.mu.Lock()
		if len(h.inbox) < inboxLimit {
			h.inbox = append(h.inbox, hostEvent{env: env})
		}
		h.mu.Unlock()
	}
}

func (h *WSHost) writePump(peer *wsPeer) {
	for env := range peer.send {
		peer.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := peer.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func (h *WSHost) drop(peer *wsPeer) {
	peer.close()
	h.mu.Lock()
	if _, ok := h.peers[peer.id]; ok {
		delete(h.peers, peer.id)
		if len(h.inbox) < inboxLimit {
			h.inbox = append(h.inbox, hostEvent{gone: peer.id})
		}
	}
	h.mu.Unlock()
}

// offer enqueues without blocking; a saturated or closing peer loses the
// frame, which the best-effort contract allows.
func (p *wsPeer) offer(env protocol.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.send <- env:
	default:
	}
}

func (p *wsPeer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.send)
	p.conn.Close()
}

// LocalID implements Bus.
func (h *WSHost) LocalID() protocol.ConnID {
	return HostID
}

// Publish implements Bus.
func (h *WSHost) Publish(env protocol.Envelope, route Route) error {
	env.From = HostID
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("host bus closed")
	}
	switch route.Kind {
	case RouteHost:
		// Host-to-host short-circuits through the inbox.
		if len(h.inbox) < inboxLimit {
			h.inbox = append(h.inbox, hostEvent{env: env})
		}
	case RouteOwner:
		if peer, ok := h.peers[route.Owner]; ok {
			peer.offer(env)
		}
	case RouteObservers:
		for id, peer := range h.peers {
			if id == route.Owner {
				continue
			}
			peer.offer(env)
		}
	}
	return nil
}

// Subscribe implements Bus.
func (h *WSHost) Subscribe(entity protocol.EntityID, hd Handler) {
	h.disp.subscribe(entity, hd)
}

// Unsubscribe implements Bus.
func (h *WSHost) Unsubscribe(entity protocol.EntityID) {
	h.disp.unsubscribe(entity)
}

// SubscribeTicks implements Bus.
func (h *WSHost) SubscribeTicks(hd TickHandler) {
	h.disp.ticks = hd
}

// SubscribeSession implements Bus.
func (h *WSHost) SubscribeSession(hd SessionHandler) {
	h.disp.session = hd
}

// Pump implements Bus, delivering inbound frames and disconnect events on
// the calling goroutine.
func (h *WSHost) Pump() {
	h.mu.Lock()
	pending := h.inbox
	h.inbox = nil
	h.mu.Unlock()
	for _, ev := range pending {
		if ev.gone != protocol.ConnNone {
			if h.OnDisconnect != nil {
				h.OnDisconnect(ev.gone)
			}
			continue
		}
		h.disp.dispatch(ev.env)
	}
}

// Close implements Bus.
func (h *WSHost) Close() error {
	h.mu.Lock()
	h.closed = true
	peers := h.peers
	h.peers = make(map[protocol.ConnID]*wsPeer)
	h.mu.Unlock()
	for _, peer := range peers {
		peer.close()
	}
	return nil
}

// WSClient is the client-side bus over a single websocket to the host.
type WSClient struct {
	id   protocol.ConnID
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan protocol.Envelope
	inbox  []protocol.Envelope
	closed bool

	disp *dispatcher
}

// DialWS connects to a host and waits for the identity handshake.
func DialWS(url string, timeout time.Duration) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	// The first frame must be the host's hello carrying our identity.
	conn.SetReadDeadline(time.Now().Add(timeout))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}
	if env.Type != protocol.MsgHello {
		conn.Close()
		return nil, fmt.Errorf("handshake: unexpected message type %d", env.Type)
	}
	var hello protocol.Hello
	if err := protocol.Open(env, &hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	c := &WSClient{
		id:   hello.ConnID,
		conn: conn,
		send: make(chan protocol.Envelope, sendQueueSize),
		disp: newDispatcher(),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *WSClient) readPump() {
	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.mu.Lock()
		if len(c.inbox) < inboxLimit {
			c.inbox = append(c.inbox, env)
		}
		c.mu.Unlock()
	}
}

func (c *WSClient) writePump() {
	for env := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

// LocalID implements Bus.
func (c *WSClient) LocalID() protocol.ConnID {
	return c.id
}

// Publish implements Bus. Clients can only reach the host; other routes are
// rejected so a misconfigured controller fails loudly in development.
func (c *WSClient) Publish(env protocol.Envelope, route Route) error {
	if route.Kind != RouteHost {
		return fmt.Errorf("client bus cannot publish route kind %d", route.Kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client bus closed")
	}
	env.From = c.id
	select {
	case c.send <- env:
	default:
	}
	return nil
}

// Subscribe implements Bus.
func (c *WSClient) Subscribe(entity protocol.EntityID, h Handler) {
	c.disp.subscribe(entity, h)
}

// Unsubscribe implements Bus.
func (c *WSClient) Unsubscribe(entity protocol.EntityID) {
	c.disp.unsubscribe(entity)
}

// SubscribeTicks implements Bus.
func (c *WSClient) SubscribeTicks(h TickHandler) {
	c.disp.ticks = h
}

// SubscribeSession implements Bus.
func (c *WSClient) SubscribeSession(h SessionHandler) {
	c.disp.session = h
}

// Pump implements Bus.
func (c *WSClient) Pump() {
	c.mu.Lock()
	pending := c.inbox
	c.inbox = nil
	c.mu.Unlock()
	for _, env := range pending {
		c.disp.dispatch(env)
	}
}

// Close implements Bus.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	c.conn.Close()
	return nil
}
