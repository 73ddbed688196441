package transport

import (
	"fmt"
	"log"

	"github.com/ystepanoff/lorahome/payload"
	proto "github.com/ystepanoff/lorahome/protocol"
)

// NextCounter draws the counter for the next data message.
func (s *Session) NextCounter() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.Next()
}

// Send transmits doc to the gateway with an ack request and holds the slot
// until the matching ack arrives or Retry gives up. While a message is in
// flight Send changes nothing and returns ErrTxUnavailable.
//
// A radio error still counts as the first attempt: the slot stays taken and
// Retry will put the same bytes on air again.
func (s *Session) Send(doc payload.Document, counter uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.stats.Rejected++
		s.debugf("tx not available, counter %d still waiting for ack", s.pending.frame.Counter)
		return ErrTxUnavailable
	}

	if s.cfg.ReportSignal {
		if sr, ok := s.radio.(SignalReporter); ok {
			doc = doc.Clone()
			doc["snr"] = sr.PacketSNR()
			doc["rssi"] = sr.PacketRSSI()
		}
	}
	body, err := s.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("send counter %d: %w", counter, err)
	}

	frame := proto.Frame{
		NetworkID: s.cfg.NetworkID,
		Emitter:   s.cfg.NodeID,
		Recipient: proto.GatewayID,
		Type:      proto.MsgNodeDataAck,
		Counter:   counter,
		Payload:   body,
	}
	n, err := frame.Encode(s.txBuf[:])
	if err != nil {
		return fmt.Errorf("send counter %d: %w", counter, err)
	}

	s.pending = &pendingSend{
		frame: frame,
		raw:   append([]byte(nil), s.txBuf[:n]...),
	}
	err = s.transmit(s.pending.raw)
	s.pending.attempts = 1
	s.pending.sentAt = s.now()
	s.stats.Sent++
	if err != nil {
		log.Printf("[Session %d] transmit counter %d: %s", s.cfg.NodeID, counter, err)
		return fmt.Errorf("send counter %d: %w", counter, err)
	}
	return nil
}

// Retry re-sends the frame awaiting ack. Once MaxRetries attempts have been
// made it releases the slot instead and returns ErrSendFailed.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryLocked()
}

func (s *Session) retryLocked() error {
	p := s.pending
	if p == nil {
		return ErrNoPendingSend
	}

	if p.attempts >= s.cfg.MaxRetries {
		s.pending = nil
		s.stats.Failed++
		log.Printf("[Session %d] max retry reached for counter %d, send failure", s.cfg.NodeID, p.frame.Counter)
		return fmt.Errorf("%w: counter %d after %d attempts", ErrSendFailed, p.frame.Counter, p.attempts)
	}

	err := s.transmit(p.raw)
	p.attempts++
	p.sentAt = s.now()
	s.stats.Sent++
	s.stats.Retransmissions++
	s.debugf("retry %d for counter %d", p.attempts, p.frame.Counter)
	if err != nil {
		return fmt.Errorf("retry counter %d: %w", p.frame.Counter, err)
	}
	return nil
}

// RetryIfDue calls Retry when the ack timeout has elapsed since the last
// attempt. retried is false when nothing was due.
func (s *Session) RetryIfDue() (retried bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.now().Sub(s.pending.sentAt) < s.cfg.AckTimeout {
		return false, nil
	}
	return true, s.retryLocked()
}
