package transport

import (
	"log"
	"sync"
	"time"

	"github.com/ystepanoff/lorahome/payload"
	proto "github.com/ystepanoff/lorahome/protocol"
)

// Session is the link layer of one node: a single transmit slot that waits
// for the gateway's ack, bounded retries, and classification of received
// frames. Methods are safe to call from several goroutines, but the state
// machine assumes one driving loop.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	radio   Radio
	codec   payload.Codec
	counter CounterSource
	now     func() time.Time

	pending *pendingSend // nil while the slot is available
	ack     proto.Frame  // reused for outgoing acks
	txBuf   [proto.MaxFrameSize]byte
	rxBuf   [proto.MaxFrameSize]byte
	stats   Stats
}

// pendingSend is the AwaitingAck state: the frame and its exact bytes, so
// retries put the identical packet on air.
type pendingSend struct {
	frame    proto.Frame
	raw      []byte
	attempts int
	sentAt   time.Time
}

// Stats counts what the session did since it was created.
type Stats struct {
	Sent            int // data frames handed to the radio, retries included
	Retransmissions int
	Delivered       int
	Failed          int
	Rejected        int // Send calls while the slot was busy
	AcksSent        int
	Received        int
	Dropped         map[DropReason]int
}

func NewSession(cfg Config, radio Radio, opts ...Option) (*Session, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg:     cfg,
		radio:   radio,
		codec:   payload.JSON{},
		counter: &memCounter{},
		now:     time.Now,
		stats:   Stats{Dropped: make(map[DropReason]int)},
	}
	for _, o := range opts {
		o.apply(s)
	}
	s.ack = proto.Frame{
		NetworkID: cfg.NetworkID,
		Emitter:   cfg.NodeID,
		Type:      proto.MsgNodeAck,
	}
	return s, nil
}

// Start puts the radio in receive mode.
func (s *Session) Start() error {
	return s.radio.ReceiveMode()
}

func (s *Session) Config() Config { return s.cfg }

func (s *Session) NodeID() proto.NodeID { return s.cfg.NodeID }

// RetryInterval is how long to wait for an ack before calling Retry.
func (s *Session) RetryInterval() time.Duration { return s.cfg.AckTimeout }

// TransmitAvailable reports whether Send would transmit.
func (s *Session) TransmitAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending == nil
}

// Pending returns the frame awaiting ack and how many times it went on air.
func (s *Session) Pending() (frame proto.Frame, attempts int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return proto.Frame{}, 0, false
	}
	return s.pending.frame, s.pending.attempts, true
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.Dropped = make(map[DropReason]int, len(s.stats.Dropped))
	for k, v := range s.stats.Dropped {
		out.Dropped[k] = v
	}
	return out
}

// transmit puts one packet on air and always returns the radio to receive mode.
func (s *Session) transmit(data []byte) error {
	err := s.writePacket(data)
	if rxErr := s.radio.ReceiveMode(); err == nil {
		err = rxErr
	}
	return err
}

func (s *Session) writePacket(data []byte) error {
	if err := s.radio.TransmitMode(); err != nil {
		return err
	}
	if err := s.radio.BeginPacket(); err != nil {
		return err
	}
	for _, b := range data {
		if err := s.radio.WriteByte(b); err != nil {
			return err
		}
	}
	return s.radio.EndPacket()
}

func (s *Session) debugf(format string, args ...any) {
	if s.cfg.Debug {
		log.Printf("[Session %d] "+format, append([]any{s.cfg.NodeID}, args...)...)
	}
}
