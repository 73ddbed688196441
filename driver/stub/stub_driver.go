//go:build !tinygo && !baremetal

package stub

import (
	"errors"
	"sync"
)

var (
	ErrNoData        = errors.New("stub: no packet data left")
	ErrNotInPacket   = errors.New("stub: write outside BeginPacket/EndPacket")
	ErrPacketTooLong = errors.New("stub: packet exceeds radio FIFO")
)

// fifoSize matches the 256 byte FIFO of the SX127x family.
const fifoSize = 256

type Mode int

const (
	ModeStandby Mode = iota
	ModeReceive
	ModeTransmit
)

// Driver implements an in-memory radio for host-side testing.
// Packets written by EndPacket are logged and delivered to linked drivers.
type Driver struct {
	mu    sync.Mutex
	rxBuf ringBuffer
	txBuf ringBuffer
	peers []*Driver

	mode     Mode
	building []byte
	inPacket bool
	current  []byte
	index    int

	rssi   int
	snr    float64
	txErr  error
	txDone int
}

func New() *Driver { return &Driver{} }

// Link lets a and b hear each other's transmissions.
func Link(a, b *Driver) {
	a.mu.Lock()
	a.peers = append(a.peers, b)
	a.mu.Unlock()
	b.mu.Lock()
	b.peers = append(b.peers, a)
	b.mu.Unlock()
}

func (d *Driver) TransmitMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = ModeTransmit
	return nil
}

func (d *Driver) ReceiveMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = ModeReceive
	return nil
}

func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Driver) BeginPacket() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.building = d.building[:0]
	d.inPacket = true
	return nil
}

func (d *Driver) WriteByte(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inPacket {
		return ErrNotInPacket
	}
	if len(d.building) >= fifoSize {
		return ErrPacketTooLong
	}
	d.building = append(d.building, c)
	return nil
}

func (d *Driver) EndPacket() error {
	d.mu.Lock()
	if !d.inPacket {
		d.mu.Unlock()
		return ErrNotInPacket
	}
	d.inPacket = false
	if err := d.txErr; err != nil {
		d.txErr = nil
		d.mu.Unlock()
		return err
	}
	frame := make([]byte, len(d.building))
	copy(frame, d.building)
	d.txBuf.push(frame)
	d.txDone++
	peers := append([]*Driver(nil), d.peers...)
	d.mu.Unlock()

	for _, p := range peers {
		p.InjectRx(frame)
	}
	return nil
}

func (d *Driver) ParsePacket() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	frame, ok := d.rxBuf.pop()
	if !ok {
		return 0
	}
	d.current = frame
	d.index = 0
	return len(frame)
}

func (d *Driver) Available() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.current) - d.index
}

func (d *Driver) ReadByte() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.index >= len(d.current) {
		return 0, ErrNoData
	}
	b := d.current[d.index]
	d.index++
	return b, nil
}

func (d *Driver) PacketRSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rssi
}

func (d *Driver) PacketSNR() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snr
}

// SetSignal sets what PacketRSSI and PacketSNR report.
func (d *Driver) SetSignal(rssi int, snr float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rssi, d.snr = rssi, snr
}

// FailNextTx makes the next EndPacket return err without transmitting.
func (d *Driver) FailNextTx(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txErr = err
}

func (d *Driver) InjectRx(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	d.rxBuf.push(frame)
}

// PendingRx returns the number of packets not yet parsed.
func (d *Driver) PendingRx() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxBuf.count
}

func (d *Driver) GetTxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txBuf.snapshot()
}

func (d *Driver) ClearTxLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txBuf = ringBuffer{}
}

// TxCount returns the number of packets sent since creation.
func (d *Driver) TxCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txDone
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		// Overwrite the oldest when buffer is full to keep memory bounded
		rb.data[rb.tail] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, rb.count)
	idx := 0
	i := rb.head
	for c := 0; c < rb.count; c++ {
		p := rb.data[i]
		cp := make([]byte, len(p))
		copy(cp, p)
		out[idx] = cp
		idx++
		i = (i + 1) % ringCapacity
	}
	return out
}
