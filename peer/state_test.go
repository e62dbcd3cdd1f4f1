package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSendSeqStartsAtZeroThenIncrements(t *testing.T) {
	s := New("127.0.0.1:9999")
	assert.Equal(t, uint32(0), s.NextSendSeq("move"))
	assert.Equal(t, uint32(1), s.NextSendSeq("move"))
	assert.Equal(t, uint32(2), s.NextSendSeq("move"))
}

func TestNextSendSeqIsPerEvent(t *testing.T) {
	s := New("addr")
	assert.Equal(t, uint32(0), s.NextSendSeq("move"))
	assert.Equal(t, uint32(0), s.NextSendSeq("chat"))
	assert.Equal(t, uint32(1), s.NextSendSeq("move"))
}

func TestAcceptRecvSeqDiscardsOutOfOrder(t *testing.T) {
	s := New("addr")
	assert.True(t, s.AcceptRecvSeq("move", 1))
	assert.True(t, s.AcceptRecvSeq("move", 3))
	assert.False(t, s.AcceptRecvSeq("move", 2)) // out of order, discarded

	last, ok := s.LastRecvSeq("move")
	assert.True(t, ok)
	assert.Equal(t, uint32(3), last)
}

func TestAcceptRecvSeqAcceptsEqual(t *testing.T) {
	s := New("addr")
	assert.True(t, s.AcceptRecvSeq("move", 5))
	assert.True(t, s.AcceptRecvSeq("move", 5))
}

func TestAcceptRecvSeqFirstPacketAtZero(t *testing.T) {
	s := New("addr")
	assert.True(t, s.AcceptRecvSeq("move", 0))
	last, ok := s.LastRecvSeq("move")
	assert.True(t, ok)
	assert.Equal(t, uint32(0), last)
}
