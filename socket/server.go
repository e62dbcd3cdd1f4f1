package socket

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/philip727/nautilus-sockets/peer"
	"github.com/philip727/nautilus-sockets/registry"
)

// ServerConfig sets the limits a Server's connection registry enforces.
type ServerConfig struct {
	MaxConnections uint8
	IdleTimeout    time.Duration
}

// DefaultServerConfig returns the reference limits: 128 connections, a
// 20-second idle timeout.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxConnections: registry.DefaultMaxConnections,
		IdleTimeout:    registry.DefaultIdleTimeout,
	}
}

// Server is the many-peer role: it accepts connections on first packet (up
// to MaxConnections), tracks per-peer sequence state, and evicts idle
// peers.
type Server struct {
	*engine
	reg *registry.Registry
}

// NewServer binds a local UDP socket for a server role with the given
// connection limits.
func NewServer(localAddr string, cfg ServerConfig, opts ...Option) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve local addr %q", localAddr)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "bind udp socket %q", localAddr)
	}

	s := &Server{
		engine: newEngine(conn, opts...),
		reg:    registry.New(cfg.MaxConnections, cfg.IdleTimeout),
	}
	s.engine.role = s
	return s, nil
}

// ServerAddress returns the address the server is bound to.
func (s *Server) ServerAddress() string {
	return s.localAddr()
}

// Send transmits a named event to one established client.
func (s *Server) Send(event string, payload []byte, mode delivery.Mode, id registry.ConnectionID) error {
	addrStr, ok := s.reg.AddrFor(id)
	if !ok {
		return errors.Errorf("server: send %q to unknown client %d", event, id)
	}
	addr, err := net.ResolveUDPAddr("udp", addrStr)
	if err != nil {
		return errors.Wrapf(err, "resolve client %d addr %q", id, addrStr)
	}

	ps, _ := s.reg.PeerState(id)
	var seq uint32
	if mode.IsSequenced() {
		seq = ps.NextSendSeq(event)
	}

	return s.sendEvent(addr, mode, seq, event, payload)
}

// Broadcast sends event to every established client. A failed send to one
// recipient is logged as a warning and does not abort the fanout; only a
// failed UDP write is also recorded as a Fault.
func (s *Server) Broadcast(event string, payload []byte, mode delivery.Mode) {
	s.BroadcastExcept(event, payload, mode, nil)
}

// BroadcastExcept is Broadcast, skipping every id in excluded.
func (s *Server) BroadcastExcept(event string, payload []byte, mode delivery.Mode, excluded map[registry.ConnectionID]struct{}) {
	for _, id := range s.reg.Clients() {
		if _, skip := excluded[id]; skip {
			continue
		}
		if err := s.Send(event, payload, mode, id); err != nil {
			s.log.Warn("broadcast %q to client %d failed: %v", event, id, err)
		}
	}
}

// ServerCallback is invoked once per accepted event packet. source is the
// remote address string the packet arrived from (resolve it to a
// registry.ConnectionID via GetClientID); the server itself is passed so a
// handler may call Send/Broadcast without closing over an outer variable.
type ServerCallback func(s *Server, source string, payload []byte)

// On registers a callback for event, fired in registration order.
func (s *Server) On(event string, cb ServerCallback) {
	s.on(event, func(role interface{}, source string, payload []byte) {
		cb(role.(*Server), source, payload)
	})
}

// OnPoll registers a callback fired once per RunEvents pass.
func (s *Server) OnPoll(cb PollCallback) {
	s.onPoll(cb)
}

// Poll drains the kernel's UDP recv buffer into the internal FIFO.
func (s *Server) Poll() {
	s.engine.poll()
}

// RunEvents sweeps idle clients, dispatches every datagram queued by Poll,
// fires poll callbacks, and drives reliable-packet retries.
func (s *Server) RunEvents() {
	s.engine.runEvents(time.Now())
}

// ServerEvents returns the connection lifecycle events queued this pass.
// The queue is cleared at the end of RunEvents, so callers must read it
// during the pass, typically from an OnPoll callback.
func (s *Server) ServerEvents() []registry.Event {
	return s.reg.Events()
}

// GetClientID resolves an established client's address to its connection id.
func (s *Server) GetClientID(addr string) (registry.ConnectionID, bool) {
	return s.reg.IDFor(addr)
}

// GetClientAddr resolves a connection id to its address.
func (s *Server) GetClientAddr(id registry.ConnectionID) (string, bool) {
	return s.reg.AddrFor(id)
}

// CloseConnectionWithClient explicitly disconnects a client, enqueuing
// OnClientDisconnected.
func (s *Server) CloseConnectionWithClient(id registry.ConnectionID) {
	s.reg.Close(id)
}

// Clients returns the ids of every currently established client.
func (s *Server) Clients() []registry.ConnectionID {
	return s.reg.Clients()
}

// MaxConnections returns the configured connection ceiling.
func (s *Server) MaxConnections() uint8 {
	return s.reg.MaxConnections
}

// CurrentConnections returns how many clients are established right now.
func (s *Server) CurrentConnections() int {
	return s.reg.CurrentConnections()
}

func (s *Server) sweepIdle(now time.Time) {
	s.reg.SweepIdle(now)
}

func (s *Server) resolvePeer(addr *net.UDPAddr, now time.Time) (*peer.State, bool) {
	id, _, ok := s.reg.EnsureEstablished(addr.String(), now)
	if !ok {
		return nil, false
	}
	s.reg.Touch(id, now)
	return s.reg.PeerState(id)
}

func (s *Server) afterDispatch() {
	s.rec.SetConnections(s.reg.CurrentConnections())
	s.reg.ClearEvents()
}
