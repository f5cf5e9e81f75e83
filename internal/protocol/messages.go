package protocol

import (
	"encoding/json"
	"fmt"
)

// ConnID identifies a connection. Assigned once by the host on accept,
// immutable for the lifetime of the connection.
type ConnID string

// ConnNone marks an entity without a controlling connection.
const ConnNone ConnID = ""

// EntityID uniquely identifies a replicated entity.
type EntityID uint64

// MsgType discriminates envelope payloads.
type MsgType uint8

const (
	MsgHello   MsgType = iota // host -> new connection: assigned ConnID
	MsgJoin                   // client -> host: request to enter
	MsgWelcome                // host -> client: identity, entity, current tick
	MsgSpawn                  // host -> all: a new controlled entity appeared
	MsgInput                  // client -> host: input + previous input
	MsgState                  // host -> owner or observers: authoritative snapshot
	MsgTick                   // host -> all: server tick beacon
	MsgDespawn                // host -> all: entity removed
)

// Envelope is the wire frame. Data holds the JSON-encoded body for Type.
// Frames are best-effort: no ordering, reliability or deduplication is
// assumed from the transport carrying them.
type Envelope struct {
	Ver    int             `json:"ver"`
	Type   MsgType         `json:"type"`
	Entity EntityID        `json:"entity,omitempty"`
	From   ConnID          `json:"from,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Hello is sent by the host transport immediately after accepting a
// connection, before any application traffic.
type Hello struct {
	ConnID ConnID `json:"connId"`
}

// Join requests entry into the session.
type Join struct {
	Name string `json:"name"`
}

// PeerInfo describes a controlled entity and its owner.
type PeerInfo struct {
	Entity EntityID `json:"entity"`
	Conn   ConnID   `json:"conn"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
}

// Welcome assigns the joining client its entity and seeds clock sync.
type Welcome struct {
	ConnID ConnID     `json:"connId"`
	Entity EntityID   `json:"entity"`
	Tick   uint64     `json:"t"`
	Peers  []PeerInfo `json:"peers,omitempty"`
}

// Spawn announces a newly controlled entity to peers already present.
type Spawn struct {
	Peer PeerInfo `json:"peer"`
}

// Despawn announces entity removal.
type Despawn struct {
	Entity EntityID `json:"entity"`
}

// Tick is the host's clock beacon.
type Tick struct {
	Tick       uint64  `json:"t"`
	ServerTime float64 `json:"serverTime"`
}

// Seal wraps a message body into an envelope.
func Seal(t MsgType, entity EntityID, from ConnID, body any) (Envelope, error) {
	env := Envelope{Ver: ProtocolVersion, Type: t, Entity: entity, From: from}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Envelope{}, fmt.Errorf("seal message type %d: %w", t, err)
		}
		env.Data = data
	}
	return env, nil
}

// Open decodes an envelope body into out.
func Open(env Envelope, out any) error {
	if !Compatible(ProtocolVersion, env.Ver) {
		return fmt.Errorf("incompatible protocol version %d", env.Ver)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("open message type %d: %w", env.Type, err)
	}
	return nil
}
