package transport

import (
	"fmt"
	"time"

	"github.com/ystepanoff/lorahome/payload"
	proto "github.com/ystepanoff/lorahome/protocol"
)

// Config holds the per-node link parameters. Zero values take the protocol defaults.
type Config struct {
	NetworkID  uint16
	NodeID     proto.NodeID
	AckTimeout time.Duration
	MaxRetries int

	// ReportSignal adds "snr" and "rssi" of the last received packet to
	// every outgoing document when the radio can measure them.
	ReportSignal bool
	// Debug logs every dropped frame and stale ack.
	Debug bool
}

// DefaultConfig returns the configuration of node id on the default network.
func DefaultConfig(id proto.NodeID) Config {
	return Config{
		NetworkID:  proto.DefaultNetworkID,
		NodeID:     id,
		AckTimeout: proto.DefaultAckTimeout * time.Millisecond,
		MaxRetries: proto.DefaultMaxRetries,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.NodeID.IsGateway() || c.NodeID.IsBroadcast() {
		return c, fmt.Errorf("%w: %d", ErrInvalidNodeID, c.NodeID)
	}
	if c.NetworkID == 0 {
		c.NetworkID = proto.DefaultNetworkID
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = proto.DefaultAckTimeout * time.Millisecond
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = proto.DefaultMaxRetries
	}
	if c.AckTimeout < 0 || c.MaxRetries < 0 {
		return c, fmt.Errorf("%w: ack timeout %v, max retries %d", ErrInvalidConfig, c.AckTimeout, c.MaxRetries)
	}
	return c, nil
}

// CounterSource hands out the counters of outgoing data messages.
type CounterSource interface {
	Next() (uint16, error)
}

type memCounter struct{ v uint16 }

func (m *memCounter) Next() (uint16, error) {
	m.v++
	return m.v, nil
}

// Option customises a Session.
type Option interface {
	apply(*Session)
}

type optionFunc func(*Session)

func (f optionFunc) apply(s *Session) { f(s) }

// WithClock replaces time.Now as the source of send timestamps.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(s *Session) { s.now = now })
}

// WithCodec selects the payload codec, JSON by default.
func WithCodec(c payload.Codec) Option {
	return optionFunc(func(s *Session) { s.codec = c })
}

// WithCounter selects where NextCounter draws from.
func WithCounter(c CounterSource) Option {
	return optionFunc(func(s *Session) { s.counter = c })
}
