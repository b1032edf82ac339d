package controller

import (
	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/ll"
)

// ReservedHandle is the sentinel returned when no connection exists. It sits
// above the highest handle the table allocates (0x0EFF) so it can never
// collide with a live handle.
const ReservedHandle uint16 = 0x0F00

const (
	firstHandle = 0x0001
	lastHandle  = 0x0EFF

	maxPendingConnections = 16
)

// rejectedConnectionHandle is reported in the Connection Complete event of a
// rejected page, matching what hosts expect on the failure path.
const rejectedConnectionHandle uint16 = 0x0EFF

type pendingConnection struct {
	peer         btvirt.AddressWithType
	authenticate bool
	le           bool
}

type aclConnection struct {
	handle    uint16
	peer      btvirt.AddressWithType
	own       btvirt.AddressWithType
	phy       ll.Phy
	encrypted bool
}

// AclConnections tracks live connection handles and the pending connections
// that precede them, for both BR/EDR and LE links.
type AclConnections struct {
	connections map[uint16]*aclConnection
	pending     map[btvirt.Address]*pendingConnection
	next        uint16
}

func NewAclConnections() *AclConnections {
	return &AclConnections{
		connections: make(map[uint16]*aclConnection),
		pending:     make(map[btvirt.Address]*pendingConnection),
		next:        firstHandle,
	}
}

// CreatePendingConnection records an inbound or outbound page in flight.
// It fails when a pending record for addr already exists or the table is at
// capacity.
func (a *AclConnections) CreatePendingConnection(addr btvirt.Address, authenticateOnComplete bool) bool {
	if _, ok := a.pending[addr]; ok {
		return false
	}
	if len(a.pending) >= maxPendingConnections {
		return false
	}
	a.pending[addr] = &pendingConnection{
		peer:         btvirt.AddressWithType{Address: addr, Type: btvirt.PublicDeviceAddress},
		authenticate: authenticateOnComplete,
	}
	return true
}

// CreatePendingLeConnection records an LE connection in flight.
func (a *AclConnections) CreatePendingLeConnection(peer btvirt.AddressWithType) bool {
	if _, ok := a.pending[peer.Address]; ok {
		return false
	}
	if len(a.pending) >= maxPendingConnections {
		return false
	}
	a.pending[peer.Address] = &pendingConnection{peer: peer, le: true}
	return true
}

// HasPendingConnection reports whether a page or LE connect is in flight for
// addr.
func (a *AclConnections) HasPendingConnection(addr btvirt.Address) bool {
	_, ok := a.pending[addr]
	return ok
}

// CancelPendingConnection drops an in-flight connection attempt.
func (a *AclConnections) CancelPendingConnection(addr btvirt.Address) bool {
	if _, ok := a.pending[addr]; !ok {
		return false
	}
	delete(a.pending, addr)
	return true
}

// AuthenticatePendingConnection consumes the authenticate-on-completion flag
// of addr's pending record.
func (a *AclConnections) AuthenticatePendingConnection(addr btvirt.Address) bool {
	p, ok := a.pending[addr]
	if !ok {
		return false
	}
	auth := p.authenticate
	p.authenticate = false
	return auth
}

// CreateConnection promotes addr's pending record to a live BR/EDR handle.
// It returns ReservedHandle when no record exists or no handle is free.
func (a *AclConnections) CreateConnection(addr, own btvirt.Address) uint16 {
	p, ok := a.pending[addr]
	if !ok || p.le {
		return ReservedHandle
	}
	handle := a.allocateHandle()
	if handle == ReservedHandle {
		return ReservedHandle
	}
	delete(a.pending, addr)
	a.connections[handle] = &aclConnection{
		handle: handle,
		peer:   p.peer,
		own:    btvirt.AddressWithType{Address: own, Type: btvirt.PublicDeviceAddress},
		phy:    ll.PhyBrEdr,
	}
	return handle
}

// CreateLeConnection promotes the pending LE record to a live handle.
func (a *AclConnections) CreateLeConnection(peer, own btvirt.AddressWithType) uint16 {
	p, ok := a.pending[peer.Address]
	if !ok || !p.le {
		return ReservedHandle
	}
	handle := a.allocateHandle()
	if handle == ReservedHandle {
		return ReservedHandle
	}
	delete(a.pending, peer.Address)
	a.connections[handle] = &aclConnection{
		handle: handle,
		peer:   peer,
		own:    own,
		phy:    ll.PhyLowEnergy,
	}
	return handle
}

// allocateHandle returns a free handle, never reusing one that is live.
func (a *AclConnections) allocateHandle() uint16 {
	for i := 0; i <= lastHandle-firstHandle; i++ {
		h := a.next
		a.next++
		if a.next > lastHandle {
			a.next = firstHandle
		}
		if _, used := a.connections[h]; !used {
			return h
		}
	}
	return ReservedHandle
}

func (a *AclConnections) HasHandle(handle uint16) bool {
	_, ok := a.connections[handle]
	return ok
}

// GetAddress returns the peer of a live handle.
func (a *AclConnections) GetAddress(handle uint16) btvirt.AddressWithType {
	if c, ok := a.connections[handle]; ok {
		return c.peer
	}
	return btvirt.AddressWithType{}
}

// GetOwnAddress returns the local address a live handle was created with.
func (a *AclConnections) GetOwnAddress(handle uint16) btvirt.AddressWithType {
	if c, ok := a.connections[handle]; ok {
		return c.own
	}
	return btvirt.AddressWithType{}
}

// GetPhyType returns the phy of a live handle.
func (a *AclConnections) GetPhyType(handle uint16) ll.Phy {
	if c, ok := a.connections[handle]; ok {
		return c.phy
	}
	return ll.PhyBrEdr
}

// GetHandle finds the live handle for a peer address with type.
func (a *AclConnections) GetHandle(peer btvirt.AddressWithType) uint16 {
	for _, c := range a.connections {
		if c.peer == peer {
			return c.handle
		}
	}
	return ReservedHandle
}

// GetHandleOnlyAddress finds the live handle for a peer, ignoring the
// address type. It returns ReservedHandle for unknown peers.
func (a *AclConnections) GetHandleOnlyAddress(addr btvirt.Address) uint16 {
	for _, c := range a.connections {
		if c.peer.Address == addr {
			return c.handle
		}
	}
	return ReservedHandle
}

// Disconnect removes a live handle.
func (a *AclConnections) Disconnect(handle uint16) bool {
	if _, ok := a.connections[handle]; !ok {
		return false
	}
	delete(a.connections, handle)
	return true
}

// IsEncrypted reports the link encryption state of a handle.
func (a *AclConnections) IsEncrypted(handle uint16) bool {
	if c, ok := a.connections[handle]; ok {
		return c.encrypted
	}
	return false
}

// Encrypt marks the link encrypted. Encrypting twice is idempotent.
func (a *AclConnections) Encrypt(handle uint16) {
	if c, ok := a.connections[handle]; ok {
		c.encrypted = true
	}
}
