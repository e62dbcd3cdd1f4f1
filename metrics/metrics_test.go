package metrics

import (
	"testing"

	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsPacketsSentByMode(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.PacketSent(delivery.Reliable)
	r.PacketSent(delivery.Reliable)
	r.PacketSent(delivery.Unreliable)

	got := testutil.ToFloat64(r.packetsSent.WithLabelValues(delivery.Reliable.String()))
	assert.Equal(t, float64(2), got)
}

func TestRecorderGaugesReflectLastSet(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.SetConnections(3)
	r.SetConnections(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(r.connections))
}

func TestNilRecorderIsSafeNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.PacketSent(delivery.Reliable)
		r.PacketReceived()
		r.AckSent()
		r.AckCleared()
		r.Retransmission()
		r.DiscardedSequenced()
		r.SetConnections(1)
		r.SetWaitingAcks(1)
	})
}

func TestNewRecorderRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotNil(t, NewRecorder(reg))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
