package transport

import (
	"log"

	"github.com/ystepanoff/lorahome/payload"
	proto "github.com/ystepanoff/lorahome/protocol"
)

// EventKind classifies the outcome of one Receive call.
type EventKind int

const (
	// EventNone: nothing for the application (no packet, or a dropped one).
	EventNone EventKind = iota
	// EventDelivered: the gateway acked the send that held the slot.
	EventDelivered
	// EventMessage: a data frame addressed to this node was decoded.
	EventMessage
)

// DropReason tells why a received packet was discarded.
type DropReason int

const (
	NotDropped DropReason = iota
	DropBadLength
	DropReadError
	DropMalformed // checksum or structural failure
	DropForeignNetwork
	DropStaleAck
	DropNotForMe
	DropUndecodable
)

func (r DropReason) String() string {
	switch r {
	case NotDropped:
		return "none"
	case DropBadLength:
		return "bad length"
	case DropReadError:
		return "read error"
	case DropMalformed:
		return "malformed"
	case DropForeignNetwork:
		return "foreign network"
	case DropStaleAck:
		return "stale ack"
	case DropNotForMe:
		return "not for me"
	case DropUndecodable:
		return "undecodable payload"
	}
	return "unknown"
}

// Event is the result of Receive.
type Event struct {
	Kind    EventKind
	Drop    DropReason
	From    proto.NodeID
	Counter uint16
	Payload payload.Document
}

// Receive polls the radio once without blocking. Malformed, foreign and
// misaddressed packets are dropped silently; a data frame that asks for an
// ack is acknowledged before it is returned.
func (s *Session) Receive() Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.radio.ParsePacket()
	if size <= 0 {
		return Event{}
	}
	if size < proto.MinFrameSize || size > proto.MaxFrameSize {
		s.flush()
		return s.drop(DropBadLength, "bad packet size %d", size)
	}

	for i := 0; i < size; i++ {
		b, err := s.radio.ReadByte()
		if err != nil {
			s.flush()
			return s.drop(DropReadError, "read byte %d of %d: %s", i, size, err)
		}
		s.rxBuf[i] = b
	}

	frame, err := proto.DecodeFrame(s.rxBuf[:size], true)
	if err != nil {
		return s.drop(DropMalformed, "bad message received: %s", err)
	}
	if frame.NetworkID != s.cfg.NetworkID {
		return s.drop(DropForeignNetwork, "ignore message, network 0x%04x", frame.NetworkID)
	}

	if frame.Recipient == s.cfg.NodeID && frame.Type == proto.MsgGatewayAck && frame.Emitter.IsGateway() {
		return s.handleAck(frame)
	}

	if frame.Recipient != s.cfg.NodeID {
		return s.drop(DropNotForMe, "ignore message for %d", frame.Recipient)
	}

	doc, err := s.codec.Decode(frame.Payload)
	if err != nil {
		return s.drop(DropUndecodable, "payload from %d: %s", frame.Emitter, err)
	}
	s.stats.Received++

	if frame.Type.RequestsAck() {
		s.sendAck(frame)
	}

	return Event{
		Kind:    EventMessage,
		From:    frame.Emitter,
		Counter: frame.Counter,
		Payload: doc,
	}
}

func (s *Session) handleAck(frame *proto.Frame) Event {
	if s.pending == nil || s.pending.frame.Counter != frame.Counter {
		return s.drop(DropStaleAck, "ack received but not for this message, ack counter %d", frame.Counter)
	}

	s.pending = nil
	s.stats.Delivered++
	s.debugf("ack received for counter %d, send success", frame.Counter)
	return Event{Kind: EventDelivered, From: frame.Emitter, Counter: frame.Counter}
}

// sendAck answers a data frame. Acks are fire-and-forget and leave the
// transmit slot alone.
func (s *Session) sendAck(frame *proto.Frame) {
	s.ack.Recipient = frame.Emitter
	s.ack.Counter = frame.Counter

	var buf [proto.AckFrameSize]byte
	n, err := s.ack.Encode(buf[:])
	if err == nil {
		err = s.transmit(buf[:n])
	}
	if err != nil {
		log.Printf("[Session %d] ack for counter %d to %d: %s", s.cfg.NodeID, frame.Counter, frame.Emitter, err)
		return
	}
	s.stats.AcksSent++
	s.debugf("ack sent for counter %d to %d", frame.Counter, frame.Emitter)
}

// flush discards whatever is left of the current packet.
func (s *Session) flush() {
	for s.radio.Available() > 0 {
		if _, err := s.radio.ReadByte(); err != nil {
			return
		}
	}
}

func (s *Session) drop(reason DropReason, format string, args ...any) Event {
	s.stats.Dropped[reason]++
	s.debugf("drop ("+reason.String()+"): "+format, args...)
	return Event{Drop: reason}
}
