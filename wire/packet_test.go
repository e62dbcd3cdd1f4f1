package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philip727/nautilus-sockets/delivery"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		mode    delivery.Mode
		seq     uint32
		ack     uint32
		event   string
		payload []byte
	}{
		{"unreliable empty payload", delivery.Unreliable, 0, 0, "ping", nil},
		{"reliable with payload", delivery.Reliable, 0, 42, "pong", []byte{9}},
		{"reliable sequenced", delivery.ReliableSequenced, 7, 99, "move", []byte{1, 2, 3}},
		{"empty event name", delivery.Unreliable, 0, 0, "", []byte{1}},
		{"event len mod 4 == 1", delivery.Unreliable, 0, 0, "a", nil},
		{"event len mod 4 == 2", delivery.Unreliable, 0, 0, "ab", nil},
		{"event len mod 4 == 3", delivery.Unreliable, 0, 0, "abc", nil},
		{"event len mod 4 == 0", delivery.Unreliable, 0, 0, "abcd", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := Encode(tc.mode, tc.seq, tc.ack, tc.event, tc.payload)
			got, err := Decode(buf)
			require.NoError(t, err)

			assert.Equal(t, tc.mode, got.Mode)
			assert.Equal(t, tc.seq, got.Seq)
			assert.Equal(t, tc.ack, got.Ack)
			assert.Equal(t, tc.event, got.Event)
			assert.Equal(t, len(tc.payload), len(got.Payload))
			if len(tc.payload) > 0 {
				assert.Equal(t, tc.payload, got.Payload)
			}
		})
	}
}

func TestPaddingBytesByEventLenMod4(t *testing.T) {
	for _, tc := range []struct {
		eventLen int
		wantPad  int
	}{
		{0, 0},
		{1, 3},
		{2, 2},
		{3, 1},
		{4, 0},
		{5, 3},
	} {
		assert.Equal(t, tc.wantPad, pad(tc.eventLen))
	}
}

func TestDecodeRejectsShortNonAckPacket(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	require.Error(t, err)
}

func TestDecodeRejectsOversizeEventLen(t *testing.T) {
	buf := Encode(delivery.Unreliable, 0, 0, "hi", nil)
	// Corrupt the declared event length to claim more bytes than exist.
	buf[eventLenOffset] = 0xFF
	buf[eventLenOffset+1] = 0xFF
	buf[eventLenOffset+2] = 0xFF
	buf[eventLenOffset+3] = 0x7F
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeRejectsNonUTF8Event(t *testing.T) {
	buf := Encode(delivery.Unreliable, 0, 0, "ok", nil)
	buf[eventLenOffset+eventLenSize] = 0xFF // first event byte, now invalid UTF-8
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeRejectsUnknownMode(t *testing.T) {
	buf := Encode(delivery.Unreliable, 0, 0, "x", nil)
	buf[0] = 0xFF
	buf[1] = 0xFF
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestAckPacketRoundTrip(t *testing.T) {
	buf := EncodeAck(12345)
	assert.Len(t, buf, AckPacketSize)

	mode, err := DecodeDeliveryMode(buf)
	require.NoError(t, err)
	assert.True(t, mode.IsAck())

	ackNum, err := DecodeAckNum(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(12345), ackNum)
}

func TestDecodeDeliveryModeDoesNotRequireFullHeader(t *testing.T) {
	// Ack packets are only 6 bytes; the mode must be readable without a
	// HeaderSize-sized buffer.
	buf := EncodeAck(1)
	mode, err := DecodeDeliveryMode(buf[:deliverySize])
	require.NoError(t, err)
	assert.True(t, mode.IsAck())
}

func TestDecodeHeaderAckReadsAckFieldWithoutDecodingEvent(t *testing.T) {
	buf := Encode(delivery.Reliable, 0, 777, "ev", []byte{1, 2, 3})
	// Corrupt the event name so a full Decode would fail on UTF-8 validity.
	buf[eventLenOffset+eventLenSize] = 0xFF

	ackNum, err := DecodeHeaderAck(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(777), ackNum)

	_, err = Decode(buf)
	require.Error(t, err, "the corrupted event name must still fail full decode")
}

func TestDecodeHeaderAckRejectsShortBuffer(t *testing.T) {
	_, err := DecodeHeaderAck(make([]byte, HeaderSize-1))
	require.Error(t, err)
}
