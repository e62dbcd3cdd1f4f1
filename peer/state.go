// Package peer tracks the per-(peer, event) send and receive sequence
// counters used by the sequenced delivery modes.
package peer

// State holds the send/receive sequence counters nautilus-sockets keeps for
// one remote address, keyed by event name.
type State struct {
	Addr    string
	sendSeq map[string]uint32
	recvSeq map[string]uint32
}

// New creates an empty per-peer state for addr.
func New(addr string) *State {
	return &State{
		Addr:    addr,
		sendSeq: make(map[string]uint32),
		recvSeq: make(map[string]uint32),
	}
}

// NextSendSeq returns the sequence number to stamp on the next sequenced
// send for event. The first call for an event returns 0; each subsequent
// call increments in place.
func (s *State) NextSendSeq(event string) uint32 {
	seq, ok := s.sendSeq[event]
	if !ok {
		s.sendSeq[event] = 0
		return 0
	}
	seq++
	s.sendSeq[event] = seq
	return seq
}

// AcceptRecvSeq compares an incoming sequence number against the highest one
// seen so far for event, lazily starting the counter at 0. It reports
// whether the packet should be accepted (seq >= last), updating the stored
// value in that case. A strictly smaller seq is a duplicate or out-of-order
// packet and is rejected without touching the stored value.
func (s *State) AcceptRecvSeq(event string, seq uint32) bool {
	last, ok := s.recvSeq[event]
	if !ok {
		s.recvSeq[event] = seq
		return true
	}
	if seq < last {
		return false
	}
	s.recvSeq[event] = seq
	return true
}

// LastRecvSeq returns the highest accepted sequence number for event, and
// whether one has been recorded yet.
func (s *State) LastRecvSeq(event string) (uint32, bool) {
	v, ok := s.recvSeq[event]
	return v, ok
}
