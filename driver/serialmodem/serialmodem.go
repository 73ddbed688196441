//go:build !tinygo

// Package serialmodem talks to a LoRa modem attached to a serial port.
// Packets travel in both directions as the ASCII marker "PKT", one length
// byte and the packet bytes; the modem owns the radio settings.
package serialmodem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
)

var (
	ErrClosed        = errors.New("serialmodem: modem closed")
	ErrNotInPacket   = errors.New("serialmodem: write outside BeginPacket/EndPacket")
	ErrPacketTooLong = errors.New("serialmodem: packet longer than 255 bytes")
	ErrNoData        = errors.New("serialmodem: no packet data left")
)

const (
	DefaultBaudRate = 115200

	maxPacket = 255
	rxQueue   = 16
)

var marker = [3]byte{'P', 'K', 'T'}

// Modem implements transport.Radio over a byte stream.
type Modem struct {
	rw    io.ReadWriteCloser
	rx    chan []byte
	done  chan struct{}
	once  sync.Once

	mu       sync.Mutex
	closed   bool
	building []byte
	inPacket bool
	current  []byte
	index    int

	Debug bool
}

// Open opens port at baud (DefaultBaudRate when zero), 8N1.
func Open(port string, baud int) (*Modem, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serialmodem: open %s: %w", port, err)
	}
	return New(p), nil
}

// New starts reading packets from rw. Close stops the reader and closes rw.
func New(rw io.ReadWriteCloser) *Modem {
	m := &Modem{
		rw:       rw,
		rx:       make(chan []byte, rxQueue),
		done:     make(chan struct{}),
		building: make([]byte, 0, maxPacket),
	}
	go m.readLoop()
	return m
}

func (m *Modem) readLoop() {
	r := bufio.NewReader(m.rw)
	for {
		pkt, err := readPacket(r)
		if err != nil {
			select {
			case <-m.done:
			default:
				log.Printf("[serialmodem] reader stopped: %s", err)
			}
			return
		}
		if len(pkt) == 0 {
			continue
		}
		select {
		case m.rx <- pkt:
		case <-m.done:
			return
		default:
			log.Printf("[serialmodem] rx queue full, dropping %d byte packet", len(pkt))
		}
	}
}

// readPacket skips input until the next marker and returns the packet after it.
func readPacket(r io.ByteReader) ([]byte, error) {
	matched := 0
	for matched < len(marker) {
		c, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch {
		case c == marker[matched]:
			matched++
		case c == marker[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	n, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	pkt := make([]byte, n)
	for i := range pkt {
		if pkt[i], err = r.ReadByte(); err != nil {
			return nil, err
		}
	}
	return pkt, nil
}

// TransmitMode and ReceiveMode are no-ops: the modem switches by itself.
func (m *Modem) TransmitMode() error { return m.checkOpen() }

func (m *Modem) ReceiveMode() error { return m.checkOpen() }

func (m *Modem) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Modem) BeginPacket() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.building = m.building[:0]
	m.inPacket = true
	return nil
}

func (m *Modem) WriteByte(c byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inPacket {
		return ErrNotInPacket
	}
	if len(m.building) >= maxPacket {
		return ErrPacketTooLong
	}
	m.building = append(m.building, c)
	return nil
}

func (m *Modem) EndPacket() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inPacket {
		return ErrNotInPacket
	}
	m.inPacket = false
	if m.closed {
		return ErrClosed
	}

	out := make([]byte, 0, len(marker)+1+len(m.building))
	out = append(out, marker[:]...)
	out = append(out, byte(len(m.building)))
	out = append(out, m.building...)
	if _, err := m.rw.Write(out); err != nil {
		return fmt.Errorf("serialmodem: write: %w", err)
	}
	if m.Debug {
		log.Printf("[serialmodem] sent %d bytes", len(m.building))
	}
	return nil
}

// ParsePacket returns the size of the next queued packet, or 0 without
// blocking.
func (m *Modem) ParsePacket() int {
	select {
	case pkt := <-m.rx:
		m.mu.Lock()
		defer m.mu.Unlock()
		m.current = pkt
		m.index = 0
		return len(pkt)
	default:
		return 0
	}
}

func (m *Modem) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.current) - m.index
}

func (m *Modem) ReadByte() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index >= len(m.current) {
		return 0, ErrNoData
	}
	b := m.current[m.index]
	m.index++
	return b, nil
}

// Close stops the reader and closes the port.
func (m *Modem) Close() error {
	err := ErrClosed
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
		err = m.rw.Close()
	})
	return err
}
