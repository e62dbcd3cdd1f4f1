// Package delivery enumerates the wire-level delivery modes a packet can be
// sent with, and the two internal modes reserved for protocol bookkeeping.
package delivery

import "github.com/pkg/errors"

// Mode selects how a packet will reach its target.
type Mode uint16

const (
	// Unreliable is fire-and-forget: no ack, no retry, no ordering.
	Unreliable Mode = 0
	// UnreliableSequenced is fire-and-forget but discarded by the receiver
	// if it is not the newest packet seen for (peer, event).
	UnreliableSequenced Mode = 1
	// Reliable is acked and retried until the ack arrives.
	Reliable Mode = 2
	// ReliableSequenced is acked and retried, and additionally discarded
	// if not the newest packet seen for (peer, event).
	ReliableSequenced Mode = 3

	// ack is the internal mode used for acknowledgement packets. It is not
	// constructable by application code.
	ack Mode = 10
	// detailRequest occupies the wire value historically reserved for an
	// unimplemented "describe yourself" exchange. The reference
	// implementation's constructor for it is a copy-paste of the ack
	// constructor, so no application-visible value is ever produced for
	// it; the decoder still accepts the wire value, so a packet carrying
	// it is decoded rather than rejected as "unknown". It is neither
	// reliable nor sequenced, so such a packet is dispatched like an
	// Unreliable one.
	detailRequest Mode = 11
)

// Ack returns the internal acknowledgement mode.
func Ack() Mode { return ack }

// IsAck reports whether m is the internal acknowledgement mode.
func (m Mode) IsAck() bool { return m == ack }

// IsReliable reports whether packets of this mode are acked and retried.
func (m Mode) IsReliable() bool {
	return m == Reliable || m == ReliableSequenced
}

// IsSequenced reports whether packets of this mode carry a per-event
// sequence number and are subject to out-of-order discard.
func (m Mode) IsSequenced() bool {
	return m == UnreliableSequenced || m == ReliableSequenced
}

// IsApplicationMode reports whether m is one of the four modes application
// code is allowed to send with.
func (m Mode) IsApplicationMode() bool {
	switch m {
	case Unreliable, UnreliableSequenced, Reliable, ReliableSequenced:
		return true
	default:
		return false
	}
}

// FromWire validates a raw u16 read off the wire and converts it to a Mode.
func FromWire(v uint16) (Mode, error) {
	switch Mode(v) {
	case Unreliable, UnreliableSequenced, Reliable, ReliableSequenced, ack, detailRequest:
		return Mode(v), nil
	default:
		return 0, errors.Errorf("delivery: unrecognized wire mode %d", v)
	}
}

// String implements fmt.Stringer for log lines.
func (m Mode) String() string {
	switch m {
	case Unreliable:
		return "Unreliable"
	case UnreliableSequenced:
		return "UnreliableSequenced"
	case Reliable:
		return "Reliable"
	case ReliableSequenced:
		return "ReliableSequenced"
	case ack:
		return "Ack"
	case detailRequest:
		return "DetailRequest"
	default:
		return "Unknown"
	}
}
