package sx127x

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ystepanoff/lorahome/transport"
)

var (
	_ transport.Radio          = (*Device)(nil)
	_ transport.SignalReporter = (*Device)(nil)
)

// fakeBus emulates the register file and FIFO of an SX1276.
type fakeBus struct {
	regs       [128]byte
	fifo       [fifoSize]byte
	autoTxDone bool
	txPackets  [][]byte
	failNext   error
}

func newFakeBus() *fakeBus {
	b := &fakeBus{autoTxDone: true}
	b.regs[REG_VERSION] = chipVersion
	return b
}

func (b *fakeBus) Tx(w, r []byte) error {
	if err := b.failNext; err != nil {
		b.failNext = nil
		return err
	}
	reg := w[0] &^ spiWriteMask
	if w[0]&spiWriteMask == 0 {
		r[1] = b.read(reg)
		return nil
	}
	b.write(reg, w[1])
	return nil
}

func (b *fakeBus) read(reg byte) byte {
	if reg == REG_FIFO {
		v := b.fifo[b.regs[REG_FIFO_ADDR_PTR]]
		b.regs[REG_FIFO_ADDR_PTR]++
		return v
	}
	return b.regs[reg]
}

func (b *fakeBus) write(reg, v byte) {
	switch reg {
	case REG_FIFO:
		b.fifo[b.regs[REG_FIFO_ADDR_PTR]] = v
		b.regs[REG_FIFO_ADDR_PTR]++
	case REG_IRQ_FLAGS:
		b.regs[reg] &^= v
	case REG_OP_MODE:
		b.regs[reg] = v
		if v&0x07 == MODE_TX && b.autoTxDone {
			n := int(b.regs[REG_PAYLOAD_LENGTH])
			b.txPackets = append(b.txPackets, append([]byte(nil), b.fifo[:n]...))
			b.regs[REG_IRQ_FLAGS] |= IRQ_TX_DONE_MASK
			b.regs[reg] = MODE_LONG_RANGE_MODE | MODE_STDBY
		}
	default:
		b.regs[reg] = v
	}
}

// receive places pkt in the FIFO at addr and raises RxDone.
func (b *fakeBus) receive(addr byte, pkt []byte, flags byte) {
	copy(b.fifo[addr:], pkt)
	b.regs[REG_FIFO_RX_CURRENT_ADDR] = addr
	b.regs[REG_RX_NB_BYTES] = byte(len(pkt))
	b.regs[REG_IRQ_FLAGS] |= flags
}

func newTestDevice(t *testing.T, opts Options) (*Device, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	d := New(bus, opts)
	clock := time.Unix(0, 0)
	d.now = func() time.Time { return clock }
	d.sleep = func(dur time.Duration) { clock = clock.Add(dur) }
	if err := d.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return d, bus
}

func TestConfigureDefaults(t *testing.T) {
	_, bus := newTestDevice(t, Options{})

	tests := []struct {
		name string
		reg  byte
		want byte
	}{
		{"frf msb", REG_FRF_MSB, 0xD9},
		{"frf mid", REG_FRF_MID, 0x00},
		{"frf lsb", REG_FRF_LSB, 0x00},
		{"bandwidth and coding rate", REG_MODEM_CONFIG_1, 0x72},
		{"spreading factor and crc", REG_MODEM_CONFIG_2, 0x74},
		{"agc, no ldo", REG_MODEM_CONFIG_3, 0x04},
		{"sync word", REG_SYNC_WORD, 0xB2},
		{"preamble", REG_PREAMBLE_LSB, 8},
		{"pa config", REG_PA_CONFIG, PA_BOOST | 15},
		{"pa dac", REG_PA_DAC, 0x84},
		{"lna boost", REG_LNA, 0x03},
		{"standby", REG_OP_MODE, MODE_LONG_RANGE_MODE | MODE_STDBY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bus.regs[tt.reg]; got != tt.want {
				t.Errorf("register 0x%02x = 0x%02x, want 0x%02x", tt.reg, got, tt.want)
			}
		})
	}
}

func TestConfigureOptions(t *testing.T) {
	d, bus := newTestDevice(t, Options{
		FrequencyHz:     433000000,
		SpreadingFactor: 12,
		CodingRate:      8,
		TxPowerDb:       20,
		DisableCRC:      true,
	})

	frf := uint32(bus.regs[REG_FRF_MSB])<<16 | uint32(bus.regs[REG_FRF_MID])<<8 | uint32(bus.regs[REG_FRF_LSB])
	if frf != 0x6C4000 {
		t.Errorf("frf = 0x%06x, want 0x6c4000", frf)
	}
	if got := bus.regs[REG_MODEM_CONFIG_2]; got != 0xC0 {
		t.Errorf("MODEM_CONFIG_2 = 0x%02x, want 0xc0", got)
	}
	if got := bus.regs[REG_MODEM_CONFIG_1]; got != 0x78 {
		t.Errorf("MODEM_CONFIG_1 = 0x%02x, want 0x78", got)
	}
	if bus.regs[REG_MODEM_CONFIG_3]&0x08 == 0 {
		t.Error("low data rate optimisation not enabled for SF12/125 kHz")
	}
	if bus.regs[REG_PA_DAC] != 0x87 || bus.regs[REG_PA_CONFIG] != PA_BOOST|15 {
		t.Errorf("20 dBm: PA_DAC=0x%02x PA_CONFIG=0x%02x", bus.regs[REG_PA_DAC], bus.regs[REG_PA_CONFIG])
	}
	if d.Options().SyncWord != 0xB2 {
		t.Errorf("sync word default not merged: 0x%02x", d.Options().SyncWord)
	}
}

func TestConfigureDetectsChip(t *testing.T) {
	tests := []struct {
		version byte
		want    error
	}{
		{0x00, ErrNoDevice},
		{0xFF, ErrNoDevice},
		{0x22, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		bus := newFakeBus()
		bus.regs[REG_VERSION] = tt.version
		if err := New(bus, Options{}).Configure(); !errors.Is(err, tt.want) {
			t.Errorf("version 0x%02x: Configure() error = %v, want %v", tt.version, err, tt.want)
		}
	}

	bus := newFakeBus()
	boom := errors.New("bus fault")
	bus.failNext = boom
	if err := New(bus, Options{}).Configure(); !errors.Is(err, boom) {
		t.Errorf("Configure() error = %v, want %v", err, boom)
	}
}

func TestModesSwitchIQ(t *testing.T) {
	d, bus := newTestDevice(t, Options{})

	if err := d.ReceiveMode(); err != nil {
		t.Fatal(err)
	}
	if bus.regs[REG_INVERTIQ] != 0x66 || bus.regs[REG_INVERTIQ2] != 0x19 {
		t.Errorf("receive IQ = 0x%02x/0x%02x", bus.regs[REG_INVERTIQ], bus.regs[REG_INVERTIQ2])
	}
	if bus.regs[REG_OP_MODE] != MODE_LONG_RANGE_MODE|MODE_RX_CONTINUOUS {
		t.Errorf("OP_MODE = 0x%02x", bus.regs[REG_OP_MODE])
	}

	if err := d.TransmitMode(); err != nil {
		t.Fatal(err)
	}
	if bus.regs[REG_INVERTIQ] != 0x27 || bus.regs[REG_INVERTIQ2] != 0x1D {
		t.Errorf("transmit IQ = 0x%02x/0x%02x", bus.regs[REG_INVERTIQ], bus.regs[REG_INVERTIQ2])
	}
	if bus.regs[REG_OP_MODE] != MODE_LONG_RANGE_MODE|MODE_STDBY {
		t.Errorf("OP_MODE = 0x%02x", bus.regs[REG_OP_MODE])
	}
}

func TestTransmitPacket(t *testing.T) {
	d, bus := newTestDevice(t, Options{})
	pkt := []byte{5, 0, 1, 0xDC, 0xAC, 7, 0, 0, 0x12, 0x34}

	if err := d.BeginPacket(); err != nil {
		t.Fatal(err)
	}
	for _, b := range pkt {
		if err := d.WriteByte(b); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.EndPacket(); err != nil {
		t.Fatalf("EndPacket() error = %v", err)
	}

	if len(bus.txPackets) != 1 || !bytes.Equal(bus.txPackets[0], pkt) {
		t.Errorf("transmitted %x", bus.txPackets)
	}
	if bus.regs[REG_IRQ_FLAGS]&IRQ_TX_DONE_MASK != 0 {
		t.Error("TxDone flag not cleared")
	}
	if err := d.WriteByte(1); !errors.Is(err, ErrNotInPacket) {
		t.Errorf("WriteByte() after EndPacket error = %v", err)
	}
}

func TestTransmitTimeout(t *testing.T) {
	d, bus := newTestDevice(t, Options{TxTimeout: 20 * time.Millisecond})
	bus.autoTxDone = false

	_ = d.BeginPacket()
	_ = d.WriteByte(0x42)
	if err := d.EndPacket(); !errors.Is(err, ErrTxTimeout) {
		t.Fatalf("EndPacket() error = %v, want %v", err, ErrTxTimeout)
	}
	if bus.regs[REG_OP_MODE] != MODE_LONG_RANGE_MODE|MODE_STDBY {
		t.Errorf("chip not idled after timeout: OP_MODE = 0x%02x", bus.regs[REG_OP_MODE])
	}
	if err := d.BeginPacket(); err != nil {
		t.Errorf("BeginPacket() after timeout error = %v", err)
	}
}

func TestReceivePacket(t *testing.T) {
	d, bus := newTestDevice(t, Options{})
	if err := d.ReceiveMode(); err != nil {
		t.Fatal(err)
	}

	if n := d.ParsePacket(); n != 0 {
		t.Fatalf("ParsePacket() = %d with no packet", n)
	}

	pkt := []byte("0123456789")
	bus.receive(0x40, pkt, IRQ_RX_DONE_MASK)
	if n := d.ParsePacket(); n != len(pkt) {
		t.Fatalf("ParsePacket() = %d, want %d", n, len(pkt))
	}
	got := make([]byte, 0, len(pkt))
	for d.Available() > 0 {
		b, err := d.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, b)
	}
	if !bytes.Equal(got, pkt) {
		t.Errorf("read %q, want %q", got, pkt)
	}
	if _, err := d.ReadByte(); !errors.Is(err, ErrNoData) {
		t.Errorf("ReadByte() error = %v, want %v", err, ErrNoData)
	}
	if bus.regs[REG_IRQ_FLAGS] != 0 {
		t.Errorf("IRQ flags not cleared: 0x%02x", bus.regs[REG_IRQ_FLAGS])
	}
	if n := d.ParsePacket(); n != 0 {
		t.Errorf("ParsePacket() = %d for an already parsed packet", n)
	}
}

func TestReceiveDiscardsCRCErrors(t *testing.T) {
	d, bus := newTestDevice(t, Options{})
	bus.receive(0, []byte("garbled"), IRQ_RX_DONE_MASK|IRQ_PAYLOAD_CRC_ERROR_MASK)

	if n := d.ParsePacket(); n != 0 {
		t.Errorf("ParsePacket() = %d for a CRC error", n)
	}
	if bus.regs[REG_IRQ_FLAGS] != 0 {
		t.Error("IRQ flags not cleared")
	}
}

func TestSignal(t *testing.T) {
	d, bus := newTestDevice(t, Options{})
	bus.regs[REG_PKT_RSSI_VALUE] = 100
	bus.regs[REG_PKT_SNR_VALUE] = 0xF8

	if got := d.PacketRSSI(); got != -57 {
		t.Errorf("PacketRSSI() = %d, want -57", got)
	}
	if got := d.PacketSNR(); got != -2 {
		t.Errorf("PacketSNR() = %v, want -2", got)
	}

	d, bus = newTestDevice(t, Options{FrequencyHz: 433000000})
	bus.regs[REG_PKT_RSSI_VALUE] = 100
	if got := d.PacketRSSI(); got != -64 {
		t.Errorf("PacketRSSI() at 433 MHz = %d, want -64", got)
	}
}

func TestInvalidSettings(t *testing.T) {
	d, _ := newTestDevice(t, Options{})
	if err := d.SetSpreadingFactor(13); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("SetSpreadingFactor(13) error = %v", err)
	}
	if err := d.SetCodingRate4(9); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("SetCodingRate4(9) error = %v", err)
	}
	if err := d.SetSignalBandwidth(600000); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("SetSignalBandwidth(600000) error = %v", err)
	}
}

func TestChipSelect(t *testing.T) {
	var lows, highs int
	bus := newFakeBus()
	d := New(bus, Options{ChipSelect: func(high bool) {
		if high {
			highs++
		} else {
			lows++
		}
	}})
	d.sleep = func(time.Duration) {}
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if lows == 0 || highs != lows+1 {
		t.Errorf("chip select lows=%d highs=%d", lows, highs)
	}
}
