// Package socket ties the wire codec, delivery modes, ack manager, per-peer
// sequencing, and connection registry into the two public roles application
// code drives: Client and Server.
package socket

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/philip727/nautilus-sockets/ack"
	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/philip727/nautilus-sockets/logging"
	"github.com/philip727/nautilus-sockets/metrics"
	"github.com/philip727/nautilus-sockets/peer"
	"github.com/philip727/nautilus-sockets/wire"
)

// recvBufferSize is the fixed scratch buffer used for one UDP read, and the
// de facto MTU ceiling a single send is allowed to fill.
const recvBufferSize = 1024

// roleHooks is the small seam between the shared engine and whichever of
// Client or Server owns it, matching the original design's single engine
// generic over a socket-role trait.
type roleHooks interface {
	// sweepIdle evicts idle peers. No-op for Client.
	sweepIdle(now time.Time)
	// resolvePeer maps an inbound datagram's source to peer state, possibly
	// establishing a new connection (Server) or verifying the source is the
	// connected peer (Client). ok=false means drop the packet.
	resolvePeer(addr *net.UDPAddr, now time.Time) (*peer.State, bool)
	// afterDispatch runs once per RunEvents pass after callbacks have fired.
	afterDispatch()
}

// rawDatagram is a datagram captured by Poll, not yet decoded.
type rawDatagram struct {
	data []byte
	addr *net.UDPAddr
}

// engine is the shared core both Client and Server embed. It owns the UDP
// socket, the outgoing ack-wait state, the inbound FIFO, and the
// diagnostics queue; it knows nothing about connection identity or
// registry lifecycle, which is each role's own concern via roleHooks.
type engine struct {
	conn   *net.UDPConn
	acks   *ack.Manager
	faults []Fault
	log    *logging.Logger
	rec    *metrics.Recorder
	role   roleHooks

	recvQueue []rawDatagram

	callbackRegistry
}

// Option configures optional engine collaborators at construction time.
type Option func(*engineOptions)

type engineOptions struct {
	recorder      *metrics.Recorder
	logger        *logging.Logger
	retryInterval time.Duration
}

// WithMetrics wires a Recorder into the engine's send/receive/retry paths.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *engineOptions) { o.recorder = rec }
}

// WithLogger overrides the default process-wide logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithRetryInterval overrides the ack manager's default 2s retry interval.
func WithRetryInterval(d time.Duration) Option {
	return func(o *engineOptions) { o.retryInterval = d }
}

func newEngine(conn *net.UDPConn, opts ...Option) *engine {
	cfg := engineOptions{logger: logging.Default}
	for _, opt := range opts {
		opt(&cfg)
	}
	acks := ack.NewManager()
	if cfg.retryInterval > 0 {
		acks.RetryInterval = cfg.retryInterval
	}
	return &engine{
		conn:             conn,
		acks:             acks,
		log:              cfg.logger,
		rec:              cfg.recorder,
		callbackRegistry: newCallbackRegistry(),
	}
}

// localAddr reports the address the engine's UDP socket is bound to.
func (e *engine) localAddr() string {
	return e.conn.LocalAddr().String()
}

// Faults returns the diagnostics recorded since the most recent RunEvents
// pass began. Each pass resets the list at its start, so faults recorded by
// Poll or by sends made between passes are dropped by the next pass.
func (e *engine) Faults() []Fault {
	return e.faults
}

func (e *engine) fault(kind FaultKind, detail string, err error) {
	e.faults = append(e.faults, Fault{Kind: kind, Detail: detail, Err: err})
}

// sendEvent encodes and transmits a named-event packet. Reliable modes
// allocate an ack number and record the raw bytes before the write, so a
// reply racing the send is never missed.
func (e *engine) sendEvent(addr *net.UDPAddr, mode delivery.Mode, seq uint32, event string, payload []byte) error {
	if wire.Size(len(event), len(payload)) > recvBufferSize {
		return errors.Errorf("send %q: encoded size exceeds %d byte buffer", event, recvBufferSize)
	}

	var ackNum uint32
	if mode.IsReliable() {
		ackNum = e.acks.NextAck()
	}

	raw := wire.Encode(mode, seq, ackNum, event, payload)

	if mode.IsReliable() {
		e.acks.Record(ackNum, raw, addr.String())
	}

	if _, err := e.conn.WriteToUDP(raw, addr); err != nil {
		e.fault(SendPacketFail, "write "+event+" to "+addr.String(), err)
		return errors.Wrapf(err, "send %q to %s", event, addr.String())
	}

	e.rec.PacketSent(mode)
	return nil
}

// sendAck transmits the degenerate 6-byte ack-only packet.
func (e *engine) sendAck(addr *net.UDPAddr, ackNum uint32) error {
	raw := wire.EncodeAck(ackNum)
	if _, err := e.conn.WriteToUDP(raw, addr); err != nil {
		e.fault(SendPacketFail, "write ack to "+addr.String(), err)
		return errors.Wrapf(err, "send ack to %s", addr.String())
	}
	e.rec.AckSent()
	return nil
}

// retransmit resends a previously recorded reliable packet's raw bytes
// verbatim, including its original ack number.
func (e *engine) retransmit(rec *ack.Record) {
	addr, err := net.ResolveUDPAddr("udp", rec.Target)
	if err != nil {
		e.fault(SendPacketFail, "resolve retry target "+rec.Target, err)
		return
	}
	if _, err := e.conn.WriteToUDP(rec.Raw, addr); err != nil {
		e.fault(SendPacketFail, "retransmit to "+rec.Target, err)
		return
	}
	e.rec.Retransmission()
}

// driveRetries resends every reliable packet whose retry interval has
// elapsed. Runs at the end of a RunEvents pass.
func (e *engine) driveRetries(now time.Time) {
	for _, rec := range e.acks.RetryDue(now) {
		e.retransmit(rec)
	}
	e.rec.SetWaitingAcks(e.acks.Waiting())
}

// poll drains the kernel's recv buffer into the engine's FIFO, looping
// until the socket would block. It never decodes; decoding happens in
// runEvents.
func (e *engine) poll() {
	for {
		buf := make([]byte, recvBufferSize)

		if err := e.conn.SetReadDeadline(time.Now()); err != nil {
			e.fault(ReadPacketFail, "set read deadline", err)
			return
		}

		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return
			}
			e.fault(ReadPacketFail, "read udp", err)
			return
		}

		e.recvQueue = append(e.recvQueue, rawDatagram{data: buf[:n], addr: addr})
	}
}

// runEvents drains the FIFO built by poll, dispatching each datagram, then
// fires poll callbacks and drives retries. now is threaded through so tests
// can simulate elapsed time without a real sleep.
func (e *engine) runEvents(now time.Time) {
	e.faults = nil

	e.role.sweepIdle(now)

	queue := e.recvQueue
	e.recvQueue = nil
	for _, dg := range queue {
		e.processDatagram(dg, now)
	}

	e.runPolls()

	e.role.afterDispatch()

	e.driveRetries(now)
}

func (e *engine) processDatagram(dg rawDatagram, now time.Time) {
	mode, err := wire.DecodeDeliveryMode(dg.data)
	if err != nil {
		e.fault(ReadPacketFail, "decode delivery mode from "+dg.addr.String(), err)
		return
	}

	if mode.IsAck() {
		ackNum, err := wire.DecodeAckNum(dg.data)
		if err != nil {
			e.fault(ReadPacketFail, "decode ack num from "+dg.addr.String(), err)
			return
		}
		e.rec.PacketReceived()
		e.handleAck(ackNum)
		return
	}

	if len(dg.data) < wire.HeaderSize {
		e.fault(PacketDiscard, "packet shorter than header from "+dg.addr.String(), nil)
		return
	}

	if mode.IsReliable() {
		ackNum, err := wire.DecodeHeaderAck(dg.data)
		if err != nil {
			e.fault(ReadPacketFail, "decode ack num from "+dg.addr.String(), err)
			return
		}
		e.replyAck(dg.addr, ackNum)
	}

	p, err := wire.Decode(dg.data)
	if err != nil {
		e.fault(ReadPacketFail, "decode packet from "+dg.addr.String(), err)
		return
	}
	e.rec.PacketReceived()

	ps, ok := e.role.resolvePeer(dg.addr, now)
	if !ok {
		e.fault(PacketDiscard, "peer rejected "+dg.addr.String(), nil)
		return
	}

	if mode.IsSequenced() {
		if !ps.AcceptRecvSeq(p.Event, p.Seq) {
			e.fault(PacketDiscard, "out of order "+p.Event+" from "+dg.addr.String(), nil)
			e.rec.DiscardedSequenced()
			return
		}
	}

	e.dispatch(e.role, p.Event, dg.addr.String(), p.Payload)
}

// handleAck clears a waiting record once its ack arrives. A missing record
// is not an error: the original send may already have been cleared by an
// earlier duplicate ack.
func (e *engine) handleAck(ackNum uint32) {
	before := e.acks.Waiting()
	e.acks.Clear(ackNum)
	if e.acks.Waiting() < before {
		e.rec.AckCleared()
	}
}

// replyAck sends the ack packet owed for a just-received reliable packet,
// ahead of decoding its event name so a malformed event does not starve the
// sender of its ack.
func (e *engine) replyAck(addr *net.UDPAddr, ackNum uint32) {
	if err := e.sendAck(addr, ackNum); err != nil {
		e.log.Warn("failed to ack packet from %s: %v", addr.String(), err)
	}
}
