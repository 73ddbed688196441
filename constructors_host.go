//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets.
package lorahome

import (
	"io"

	"github.com/ystepanoff/lorahome/config"
	"github.com/ystepanoff/lorahome/driver/serialmodem"
	"github.com/ystepanoff/lorahome/driver/stub"
	"github.com/ystepanoff/lorahome/store"
	"github.com/ystepanoff/lorahome/transport"
)

// NewSession returns a session on an in-memory stub radio.
func NewSession(cfg Config, opts ...transport.Option) (*Session, error) {
	return transport.NewSession(cfg, stub.New(), opts...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenRadio opens the radio selected by c. The closer releases the device.
func OpenRadio(c config.Config) (Radio, io.Closer, error) {
	switch c.Radio.Driver {
	case config.DriverSerial:
		m, err := serialmodem.Open(c.Radio.Device, c.Radio.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		m.Debug = c.Debug
		return m, m, nil
	case config.DriverSX127x:
		return openSX127x(c)
	default:
		return stub.New(), nopCloser{}, nil
	}
}

// Open builds the session described by c, with a persistent counter when
// CounterDB is set. The closer releases the radio and the counter.
func Open(c config.Config) (*Session, io.Closer, error) {
	radio, rc, err := OpenRadio(c)
	if err != nil {
		return nil, nil, err
	}
	closers := multiCloser{rc}
	opts := []transport.Option{transport.WithCodec(c.PayloadCodec())}

	if c.CounterDB != "" {
		counter, err := store.Open(c.CounterDB, c.NetworkID, NodeID(c.NodeID))
		if err != nil {
			closers.Close()
			return nil, nil, err
		}
		closers = append(closers, counter)
		opts = append(opts, transport.WithCounter(counter))
	}

	s, err := transport.NewSession(c.Transport(), radio, opts...)
	if err != nil {
		closers.Close()
		return nil, nil, err
	}
	return s, closers, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
