// Package registry implements the server's address<->id connection table:
// establishment on first packet, idle-timeout eviction, explicit close, and
// id recycling.
package registry

import (
	"time"

	"github.com/philip727/nautilus-sockets/peer"
)

// ConnectionID is the handle the server's public API uses to refer to a
// peer, recycled as connections come and go.
type ConnectionID uint16

// DefaultMaxConnections is the ceiling on simultaneously Established peers.
const DefaultMaxConnections uint8 = 128

// DefaultIdleTimeout is how long a peer may go silent before being evicted.
const DefaultIdleTimeout = 20 * time.Second

// EventKind tags the variant of a Event.
type EventKind int

const (
	// OnClientConnected fires when a new address is accepted.
	OnClientConnected EventKind = iota
	// OnClientTimeout fires when a peer is evicted for going idle.
	OnClientTimeout
	// OnClientDisconnected fires when close is called explicitly.
	OnClientDisconnected
)

// Event is pushed to the registry's queue as connections come and go.
type Event struct {
	Kind EventKind
	ID   ConnectionID
}

// Registry is the server's connection table.
//
// Not safe for concurrent use without external synchronization.
type Registry struct {
	MaxConnections uint8
	IdleTimeout    time.Duration

	addrToID    map[string]ConnectionID
	idToAddr    map[ConnectionID]string
	connections map[ConnectionID]*peer.State
	lastSeen    map[ConnectionID]time.Time

	nextID   ConnectionID
	freedIDs []ConnectionID

	events []Event
}

// New creates an empty registry with the given limits.
func New(maxConnections uint8, idleTimeout time.Duration) *Registry {
	return &Registry{
		MaxConnections: maxConnections,
		IdleTimeout:    idleTimeout,
		addrToID:       make(map[string]ConnectionID),
		idToAddr:       make(map[ConnectionID]string),
		connections:    make(map[ConnectionID]*peer.State),
		lastSeen:       make(map[ConnectionID]time.Time),
	}
}

// IDFor returns the connection id for an established address.
func (r *Registry) IDFor(addr string) (ConnectionID, bool) {
	id, ok := r.addrToID[addr]
	return id, ok
}

// AddrFor returns the address for a connection id.
func (r *Registry) AddrFor(id ConnectionID) (string, bool) {
	addr, ok := r.idToAddr[id]
	return addr, ok
}

// PeerState returns the per-event sequence state for an established
// connection id.
func (r *Registry) PeerState(id ConnectionID) (*peer.State, bool) {
	p, ok := r.connections[id]
	return p, ok
}

// Clients returns the ids of every currently Established peer.
func (r *Registry) Clients() []ConnectionID {
	ids := make([]ConnectionID, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	return ids
}

// CurrentConnections reports how many peers are Established right now.
func (r *Registry) CurrentConnections() int {
	return len(r.connections)
}

// AtCapacity reports whether a new connection may not be established.
func (r *Registry) AtCapacity() bool {
	return len(r.connections) >= int(r.MaxConnections)
}

// EnsureEstablished establishes addr as a new connection if it is not
// already known and the registry is under capacity, returning its id and
// whether this call newly established it. Returns ok=false only when the
// registry is at capacity and addr is unknown — the caller must then drop
// the packet instead of dispatching it.
func (r *Registry) EnsureEstablished(addr string, now time.Time) (id ConnectionID, established, ok bool) {
	if existing, already := r.addrToID[addr]; already {
		return existing, false, true
	}

	if r.AtCapacity() {
		return 0, false, false
	}

	id = r.allocateID()
	r.addrToID[addr] = id
	r.idToAddr[id] = addr
	r.connections[id] = peer.New(addr)
	r.lastSeen[id] = now

	r.events = append(r.events, Event{Kind: OnClientConnected, ID: id})
	return id, true, true
}

func (r *Registry) allocateID() ConnectionID {
	if n := len(r.freedIDs); n > 0 {
		id := r.freedIDs[0]
		r.freedIDs = r.freedIDs[1:]
		return id
	}
	id := r.nextID
	r.nextID++
	return id
}

// Touch refreshes the last-seen time for an established connection.
func (r *Registry) Touch(id ConnectionID, now time.Time) {
	if _, ok := r.connections[id]; ok {
		r.lastSeen[id] = now
	}
}

// free drops a connection from every map and returns its id to the free
// list for reuse. It does not enqueue an event — callers decide which event
// kind applies.
func (r *Registry) free(id ConnectionID) {
	addr, ok := r.idToAddr[id]
	if !ok {
		return
	}
	delete(r.idToAddr, id)
	delete(r.addrToID, addr)
	delete(r.connections, id)
	delete(r.lastSeen, id)
	r.freedIDs = append(r.freedIDs, id)
}

// SweepIdle evicts every connection that has not been Touch-ed within
// IdleTimeout, enqueuing OnClientTimeout for each. Intended to run once per
// RunEvents pass, before dispatch.
func (r *Registry) SweepIdle(now time.Time) {
	var stale []ConnectionID
	for id, seen := range r.lastSeen {
		if now.Sub(seen) >= r.IdleTimeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		r.free(id)
		r.events = append(r.events, Event{Kind: OnClientTimeout, ID: id})
	}
}

// Close explicitly disconnects a client, enqueuing OnClientDisconnected.
func (r *Registry) Close(id ConnectionID) {
	if _, ok := r.idToAddr[id]; !ok {
		return
	}
	r.free(id)
	r.events = append(r.events, Event{Kind: OnClientDisconnected, ID: id})
}

// Events returns a snapshot of the events queued this pass, without
// clearing them.
func (r *Registry) Events() []Event {
	return r.events
}

// ClearEvents drops the queued events. Called once per RunEvents pass,
// after dispatch.
func (r *Registry) ClearEvents() {
	r.events = nil
}
