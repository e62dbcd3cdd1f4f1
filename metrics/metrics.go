// Package metrics exposes the Prometheus counters and gauges the socket
// engine updates as it sends, receives, and retries packets.
package metrics

import (
	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder wires the socket engine's steady-state network loop to a set of
// Prometheus collectors. A nil *Recorder is valid and every method becomes a
// no-op, so wiring metrics into an engine is opt-in.
type Recorder struct {
	packetsSent        *prometheus.CounterVec
	packetsReceived    prometheus.Counter
	acksSent           prometheus.Counter
	acksCleared        prometheus.Counter
	retransmissions    prometheus.Counter
	discardedSequenced prometheus.Counter
	connections        prometheus.Gauge
	waitingAcks        prometheus.Gauge
}

// NewRecorder creates a Recorder and registers its collectors with reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nautilus",
			Name:      "packets_sent_total",
			Help:      "Packets sent, labeled by delivery mode.",
		}, []string{"mode"}),
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nautilus",
			Name:      "packets_received_total",
			Help:      "Packets successfully decoded off the wire.",
		}),
		acksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nautilus",
			Name:      "acks_sent_total",
			Help:      "Ack-only packets sent.",
		}),
		acksCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nautilus",
			Name:      "acks_cleared_total",
			Help:      "Waiting reliable records cleared by an incoming ack.",
		}),
		retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nautilus",
			Name:      "retransmissions_total",
			Help:      "Reliable packets resent after their retry interval elapsed.",
		}),
		discardedSequenced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nautilus",
			Name:      "discarded_sequenced_total",
			Help:      "Sequenced packets discarded for arriving out of order.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nautilus",
			Name:      "connections",
			Help:      "Currently established connections (server role only).",
		}),
		waitingAcks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nautilus",
			Name:      "waiting_acks",
			Help:      "Reliable sends still awaiting their ack.",
		}),
	}

	reg.MustRegister(
		r.packetsSent,
		r.packetsReceived,
		r.acksSent,
		r.acksCleared,
		r.retransmissions,
		r.discardedSequenced,
		r.connections,
		r.waitingAcks,
	)

	return r
}

func (r *Recorder) PacketSent(mode delivery.Mode) {
	if r == nil {
		return
	}
	r.packetsSent.WithLabelValues(mode.String()).Inc()
}

func (r *Recorder) PacketReceived() {
	if r == nil {
		return
	}
	r.packetsReceived.Inc()
}

func (r *Recorder) AckSent() {
	if r == nil {
		return
	}
	r.acksSent.Inc()
}

func (r *Recorder) AckCleared() {
	if r == nil {
		return
	}
	r.acksCleared.Inc()
}

func (r *Recorder) Retransmission() {
	if r == nil {
		return
	}
	r.retransmissions.Inc()
}

func (r *Recorder) DiscardedSequenced() {
	if r == nil {
		return
	}
	r.discardedSequenced.Inc()
}

func (r *Recorder) SetConnections(n int) {
	if r == nil {
		return
	}
	r.connections.Set(float64(n))
}

func (r *Recorder) SetWaitingAcks(n int) {
	if r == nil {
		return
	}
	r.waitingAcks.Set(float64(n))
}
