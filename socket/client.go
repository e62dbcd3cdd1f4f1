package socket

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/philip727/nautilus-sockets/peer"
)

// Client is the single-peer role: it talks to exactly one server, chosen by
// ConnectTo. No handshake is performed — the first packet sent is the first
// the server sees, matching the original design.
type Client struct {
	*engine

	serverAddr *net.UDPAddr
	serverStr  string
	peer       *peer.State
}

// NewClient binds a local UDP socket for a client role. The socket is bound
// immediately; ConnectTo only records where subsequent sends go.
func NewClient(localAddr string, opts ...Option) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve local addr %q", localAddr)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "bind udp socket %q", localAddr)
	}

	c := &Client{engine: newEngine(conn, opts...)}
	c.engine.role = c
	return c, nil
}

// ConnectTo records remoteAddr as this client's peer. It sends nothing: the
// layer performs no handshake, preserved from the original design.
func (c *Client) ConnectTo(remoteAddr string) error {
	addr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return errors.Wrapf(err, "resolve remote addr %q", remoteAddr)
	}

	c.serverAddr = addr
	c.serverStr = remoteAddr
	c.peer = peer.New(remoteAddr)
	return nil
}

// ServerAddress returns the address passed to ConnectTo, and whether one has
// been set yet.
func (c *Client) ServerAddress() (string, bool) {
	if c.peer == nil {
		return "", false
	}
	return c.serverStr, true
}

// Send transmits a named event to the connected server.
func (c *Client) Send(event string, payload []byte, mode delivery.Mode) error {
	if c.peer == nil {
		return errors.New("client: not connected, call ConnectTo first")
	}

	var seq uint32
	if mode.IsSequenced() {
		seq = c.peer.NextSendSeq(event)
	}

	return c.sendEvent(c.serverAddr, mode, seq, event, payload)
}

// Callback is invoked once per accepted event packet. source is the remote
// address string the packet arrived from; the client itself is passed so a
// handler may call Send without closing over an outer variable.
type Callback func(c *Client, source string, payload []byte)

// On registers a callback for event, fired in registration order.
func (c *Client) On(event string, cb Callback) {
	c.on(event, func(role interface{}, source string, payload []byte) {
		cb(role.(*Client), source, payload)
	})
}

// OnPoll registers a callback fired once per RunEvents pass.
func (c *Client) OnPoll(cb PollCallback) {
	c.onPoll(cb)
}

// Poll drains the kernel's UDP recv buffer into the internal FIFO. It never
// blocks and never dispatches; call RunEvents to do that.
func (c *Client) Poll() {
	c.engine.poll()
}

// RunEvents dispatches every datagram queued by Poll, fires poll callbacks,
// and drives reliable-packet retries.
func (c *Client) RunEvents() {
	c.engine.runEvents(time.Now())
}

// sweepIdle is a no-op: idle timeout only applies to the server role.
func (c *Client) sweepIdle(time.Time) {}

// resolvePeer accepts only datagrams from the connected server; anything
// else is a spoofed or stale source and is dropped.
func (c *Client) resolvePeer(addr *net.UDPAddr, _ time.Time) (*peer.State, bool) {
	if c.peer == nil || c.serverAddr == nil {
		return nil, false
	}
	if addr.String() != c.serverAddr.String() {
		return nil, false
	}
	return c.peer, true
}

// afterDispatch is a no-op: the client has no server-events queue to clear.
func (c *Client) afterDispatch() {}
