package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureEstablishedAssignsNewID(t *testing.T) {
	r := New(2, time.Minute)
	now := time.Now()

	id, established, ok := r.EnsureEstablished("a:1", now)
	require.True(t, ok)
	assert.True(t, established)
	assert.Equal(t, ConnectionID(0), id)

	again, established, ok := r.EnsureEstablished("a:1", now)
	require.True(t, ok)
	assert.False(t, established)
	assert.Equal(t, id, again)
}

func TestEnsureEstablishedIsAddrIDConsistent(t *testing.T) {
	r := New(8, time.Minute)
	now := time.Now()

	id, _, ok := r.EnsureEstablished("a:1", now)
	require.True(t, ok)

	addr, ok := r.AddrFor(id)
	require.True(t, ok)
	assert.Equal(t, "a:1", addr)

	gotID, ok := r.IDFor("a:1")
	require.True(t, ok)
	assert.Equal(t, id, gotID)
}

func TestEnsureEstablishedDropsWhenAtCapacity(t *testing.T) {
	r := New(1, time.Minute)
	now := time.Now()

	_, _, ok := r.EnsureEstablished("a:1", now)
	require.True(t, ok)

	_, _, ok = r.EnsureEstablished("b:2", now)
	assert.False(t, ok, "new peer must be dropped silently once at capacity")
	assert.LessOrEqual(t, r.CurrentConnections(), int(r.MaxConnections))
}

func TestCloseFreesIDForReuse(t *testing.T) {
	r := New(8, time.Minute)
	now := time.Now()

	id, _, _ := r.EnsureEstablished("a:1", now)
	r.Close(id)

	assert.Equal(t, 0, r.CurrentConnections())
	_, ok := r.IDFor("a:1")
	assert.False(t, ok)

	newID, established, ok := r.EnsureEstablished("b:2", now)
	require.True(t, ok)
	assert.True(t, established)
	assert.Equal(t, id, newID, "freed id should be recycled before allocating a new one")
}

func TestCloseEnqueuesOnClientDisconnected(t *testing.T) {
	r := New(8, time.Minute)
	now := time.Now()

	id, _, _ := r.EnsureEstablished("a:1", now)
	r.ClearEvents()
	r.Close(id)

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, OnClientDisconnected, events[0].Kind)
	assert.Equal(t, id, events[0].ID)
}

func TestCloseOnUnknownIDIsNoop(t *testing.T) {
	r := New(8, time.Minute)
	assert.NotPanics(t, func() { r.Close(ConnectionID(99)) })
	assert.Empty(t, r.Events())
}

func TestSweepIdleEvictsStaleConnectionsOnly(t *testing.T) {
	r := New(8, 10*time.Second)
	base := time.Now()

	staleID, _, _ := r.EnsureEstablished("stale:1", base)
	freshID, _, _ := r.EnsureEstablished("fresh:1", base)
	r.Touch(freshID, base.Add(8*time.Second))
	r.ClearEvents()

	r.SweepIdle(base.Add(11 * time.Second))

	assert.Equal(t, 1, r.CurrentConnections())
	_, ok := r.PeerState(staleID)
	assert.False(t, ok)
	_, ok = r.PeerState(freshID)
	assert.True(t, ok)

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, OnClientTimeout, events[0].Kind)
	assert.Equal(t, staleID, events[0].ID)
}

func TestFreedIDsNeverOverlapEstablishedIDs(t *testing.T) {
	r := New(8, time.Minute)
	now := time.Now()

	a, _, _ := r.EnsureEstablished("a:1", now)
	b, _, _ := r.EnsureEstablished("b:1", now)
	r.Close(a)

	c, _, _ := r.EnsureEstablished("c:1", now)
	assert.Equal(t, a, c)
	assert.NotEqual(t, b, c)

	for _, id := range r.Clients() {
		for _, freed := range r.freedIDs {
			assert.NotEqual(t, freed, id)
		}
	}
}

func TestEventsAreClearedOnlyByClearEvents(t *testing.T) {
	r := New(8, time.Minute)
	now := time.Now()
	r.EnsureEstablished("a:1", now)

	assert.Len(t, r.Events(), 1)
	assert.Len(t, r.Events(), 1, "Events must not clear itself as a side effect")

	r.ClearEvents()
	assert.Empty(t, r.Events())
}
