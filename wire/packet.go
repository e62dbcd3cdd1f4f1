// Package wire implements the fixed-prefix packet layout nautilus-sockets
// ships over UDP: a 14-byte header, a zero-padded event name, and an opaque
// payload. Layout and field order are normative — interoperating
// implementations must reproduce it bit-for-bit.
package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/philip727/nautilus-sockets/delivery"
)

const (
	// HeaderSize is the number of fixed-offset bytes before the event name.
	HeaderSize = 14

	deliveryOffset = 0
	deliverySize   = 2
	seqOffset      = 2
	seqSize        = 4
	ackOffset      = 6
	ackSize        = 4
	eventLenOffset = 10
	eventLenSize   = 4

	// AckPacketSize is the fixed size of the degenerate ack-only packet.
	AckPacketSize = 6
)

// Packet is the decoded form of a datagram.
type Packet struct {
	Mode    delivery.Mode
	Seq     uint32
	Ack     uint32
	Event   string
	Payload []byte
}

// pad returns the number of zero bytes appended after an event name of the
// given length so the field that follows starts 4-byte aligned.
func pad(eventLen int) int {
	return (4 - (eventLen % 4)) % 4
}

// Size returns the total encoded size of a packet with the given event name
// and payload lengths.
func Size(eventLen, payloadLen int) int {
	return HeaderSize + eventLen + pad(eventLen) + payloadLen
}

// Encode serializes a packet into a freshly allocated buffer.
func Encode(mode delivery.Mode, seq, ack uint32, event string, payload []byte) []byte {
	p := pad(len(event))
	buf := make([]byte, Size(len(event), len(payload)))

	binary.LittleEndian.PutUint16(buf[deliveryOffset:], uint16(mode))
	binary.LittleEndian.PutUint32(buf[seqOffset:], seq)
	binary.LittleEndian.PutUint32(buf[ackOffset:], ack)
	binary.LittleEndian.PutUint32(buf[eventLenOffset:], uint32(len(event)))

	eventStart := eventLenOffset + eventLenSize
	copy(buf[eventStart:], event)

	payloadStart := eventStart + len(event) + p
	copy(buf[payloadStart:], payload)

	return buf
}

// EncodeAck serializes the degenerate 6-byte ack packet.
func EncodeAck(ackNum uint32) []byte {
	buf := make([]byte, AckPacketSize)
	binary.LittleEndian.PutUint16(buf[deliveryOffset:], uint16(delivery.Ack()))
	binary.LittleEndian.PutUint32(buf[2:], ackNum)
	return buf
}

// DecodeDeliveryMode reads just the delivery-mode field, the first thing a
// receiver must look at before deciding whether the rest of the size checks
// even apply (ack packets are 6 bytes, not HeaderSize-or-more).
func DecodeDeliveryMode(buf []byte) (delivery.Mode, error) {
	if len(buf) < deliverySize {
		return 0, errors.New("wire: buffer too short to contain a delivery mode")
	}
	raw := binary.LittleEndian.Uint16(buf[deliveryOffset:])
	return delivery.FromWire(raw)
}

// DecodeAckNum reads the ack number out of a 6-byte ack packet. Callers must
// have already confirmed the mode via DecodeDeliveryMode.
func DecodeAckNum(buf []byte) (uint32, error) {
	if len(buf) < AckPacketSize {
		return 0, errors.New("wire: ack packet shorter than 6 bytes")
	}
	return binary.LittleEndian.Uint32(buf[2:6]), nil
}

// DecodeHeaderAck reads the ack_num field of a full (non-ack) packet header
// at its fixed offset, without requiring the rest of the header to decode
// successfully. This lets a reliable packet be acked even when its event
// name turns out to be malformed, per the reference dispatch order (ack
// first, decode event second).
func DecodeHeaderAck(buf []byte) (uint32, error) {
	if len(buf) < HeaderSize {
		return 0, errors.Errorf("wire: packet length %d below header size %d", len(buf), HeaderSize)
	}
	return binary.LittleEndian.Uint32(buf[ackOffset:]), nil
}

// Decode parses a full (non-ack) packet. It does not reinspect the delivery
// mode field validity beyond re-reading it; callers that already branched on
// DecodeDeliveryMode may ignore the mode in the result.
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < HeaderSize {
		return nil, errors.Errorf("wire: packet length %d below header size %d", len(buf), HeaderSize)
	}

	rawMode := binary.LittleEndian.Uint16(buf[deliveryOffset:])
	mode, err := delivery.FromWire(rawMode)
	if err != nil {
		return nil, err
	}

	seq := binary.LittleEndian.Uint32(buf[seqOffset:])
	ack := binary.LittleEndian.Uint32(buf[ackOffset:])
	eventLen := binary.LittleEndian.Uint32(buf[eventLenOffset:])

	eventStart := eventLenOffset + eventLenSize
	if uint64(eventStart)+uint64(eventLen) > uint64(len(buf)) {
		return nil, errors.Errorf("wire: declared event length %d exceeds buffer", eventLen)
	}

	eventBytes := buf[eventStart : eventStart+int(eventLen)]
	if !utf8.Valid(eventBytes) {
		return nil, errors.New("wire: event name is not valid UTF-8")
	}
	event := string(eventBytes)

	payloadStart := eventStart + int(eventLen) + pad(int(eventLen))
	if payloadStart > len(buf) {
		return nil, errors.New("wire: padding runs past end of buffer")
	}
	payload := buf[payloadStart:]

	return &Packet{
		Mode:    mode,
		Seq:     seq,
		Ack:     ack,
		Event:   event,
		Payload: payload,
	}, nil
}
