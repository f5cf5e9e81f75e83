package predict

import (
	"github.com/kurozael/netcode/internal/protocol"
)

// Role is the controller's current position in the ownership matrix.
type Role uint8

const (
	// RoleDormant means no controlling connection is assigned yet.
	RoleDormant Role = iota
	// RoleLocalClient predicts locally and reconciles against the host.
	RoleLocalClient
	// RoleLocalHost simulates authoritatively for a host-controlled entity.
	RoleLocalHost
	// RoleProxiedHost drains a remote client's inputs on the host.
	RoleProxiedHost
	// RoleRemoteObserver buffers and interpolates received states.
	RoleRemoteObserver
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleDormant:
		return "dormant"
	case RoleLocalClient:
		return "local-client"
	case RoleLocalHost:
		return "local-host"
	case RoleProxiedHost:
		return "proxied-host"
	case RoleRemoteObserver:
		return "remote-observer"
	}
	return "unknown"
}

// resolveRole derives the role from the ownership facts.
func resolveRole(host bool, localID, owner protocol.ConnID) Role {
	switch {
	case owner == protocol.ConnNone:
		return RoleDormant
	case host && owner == localID:
		return RoleLocalHost
	case owner == localID:
		return RoleLocalClient
	case host:
		return RoleProxiedHost
	default:
		return RoleRemoteObserver
	}
}
