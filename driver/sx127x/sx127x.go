// Package sx127x drives Semtech SX1276/77/78/79 LoRa transceivers (HopeRF
// RFM95/96/98) over SPI. The chip is used in explicit header mode with its
// 256 byte FIFO shared between receive and transmit.
package sx127x

import (
	"errors"
	"fmt"
	"log"
	"time"
)

var (
	ErrNoDevice           = errors.New("sx127x: module not detected")
	ErrUnsupportedVersion = errors.New("sx127x: chip version not supported")
	ErrTxTimeout          = errors.New("sx127x: transmit timed out")
	ErrTxBusy             = errors.New("sx127x: transmission in progress")
	ErrNotInPacket        = errors.New("sx127x: write outside BeginPacket/EndPacket")
	ErrPacketTooLong      = errors.New("sx127x: packet exceeds FIFO")
	ErrNoData             = errors.New("sx127x: no packet data left")
	ErrInvalidSetting     = errors.New("sx127x: invalid setting")
)

// Conn is a full-duplex SPI transfer. golang.org/x/exp/io/spi.Device and
// TinyGo's machine.SPI both satisfy it.
type Conn interface {
	Tx(w, r []byte) error
}

// Options are the modem settings applied by Configure.
type Options struct {
	FrequencyHz     uint32
	BandwidthHz     int
	SpreadingFactor uint8
	CodingRate      uint8 // denominator of 4/x, 5 to 8
	SyncWord        uint8
	PreambleLength  uint16
	TxPowerDb       int
	DisableCRC      bool
	TxTimeout       time.Duration

	// ChipSelect and Reset drive the NSS and RESET lines when the bus does
	// not. Both are active low.
	ChipSelect func(high bool)
	Reset      func(high bool)

	Debug bool
}

// defaultOptions match the LoRaHome gateway: 868 MHz, SF7, 125 kHz, CR 4/5,
// sync word 0xB2 and CRC on.
var defaultOptions = Options{
	FrequencyHz:     868000000,
	BandwidthHz:     125000,
	SpreadingFactor: 7,
	CodingRate:      5,
	SyncWord:        0xB2,
	PreambleLength:  8,
	TxPowerDb:       17,
	TxTimeout:       2 * time.Second,
}

// DefaultOptions returns the settings Configure uses for zero fields.
func DefaultOptions() Options { return defaultOptions }

func (o Options) withDefaults() Options {
	out := defaultOptions
	out.DisableCRC = o.DisableCRC
	out.ChipSelect = o.ChipSelect
	out.Reset = o.Reset
	out.Debug = o.Debug
	if o.FrequencyHz != 0 {
		out.FrequencyHz = o.FrequencyHz
	}
	if o.BandwidthHz != 0 {
		out.BandwidthHz = o.BandwidthHz
	}
	if o.SpreadingFactor != 0 {
		out.SpreadingFactor = o.SpreadingFactor
	}
	if o.CodingRate != 0 {
		out.CodingRate = o.CodingRate
	}
	if o.SyncWord != 0 {
		out.SyncWord = o.SyncWord
	}
	if o.PreambleLength != 0 {
		out.PreambleLength = o.PreambleLength
	}
	if o.TxPowerDb != 0 {
		out.TxPowerDb = o.TxPowerDb
	}
	if o.TxTimeout != 0 {
		out.TxTimeout = o.TxTimeout
	}
	return out
}

// Device is one SX127x transceiver. It implements transport.Radio and
// transport.SignalReporter.
type Device struct {
	conn Conn
	opts Options

	inPacket     bool
	txLength     int
	packetIndex  int
	packetLength int

	sleep func(time.Duration)
	now   func() time.Time
}

func New(conn Conn, opts Options) *Device {
	return &Device{
		conn:  conn,
		opts:  opts.withDefaults(),
		sleep: time.Sleep,
		now:   time.Now,
	}
}

func (d *Device) Options() Options { return d.opts }

// Configure resets the chip, checks its version and applies the modem
// settings. The chip is left in standby.
func (d *Device) Configure() error {
	if d.opts.Reset != nil {
		d.opts.Reset(false)
		d.sleep(10 * time.Millisecond)
		d.opts.Reset(true)
		d.sleep(10 * time.Millisecond)
	}
	if d.opts.ChipSelect != nil {
		d.opts.ChipSelect(true)
	}

	version, err := d.readRegister(REG_VERSION)
	if err != nil {
		return err
	}
	switch version {
	case chipVersion:
	case 0x00, 0xFF:
		return ErrNoDevice
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, version)
	}

	// LoRa mode can only be selected while sleeping
	if err := d.Sleep(); err != nil {
		return err
	}

	steps := []func() error{
		func() error { return d.SetFrequency(d.opts.FrequencyHz) },
		func() error { return d.writeRegister(REG_FIFO_TX_BASE_ADDR, 0) },
		func() error { return d.writeRegister(REG_FIFO_RX_BASE_ADDR, 0) },
		// LNA boost and automatic gain control
		func() error { return d.modifyRegister(REG_LNA, 0xFF, 0x03) },
		func() error { return d.writeRegister(REG_MODEM_CONFIG_3, 0x04) },
		func() error { return d.SetTxPower(d.opts.TxPowerDb) },
		func() error { return d.SetSignalBandwidth(d.opts.BandwidthHz) },
		func() error { return d.SetSpreadingFactor(d.opts.SpreadingFactor) },
		func() error { return d.SetCodingRate4(d.opts.CodingRate) },
		func() error { return d.SetPreambleLength(d.opts.PreambleLength) },
		func() error { return d.SetSyncWord(d.opts.SyncWord) },
		func() error { return d.SetCRC(!d.opts.DisableCRC) },
		d.Idle,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	d.debugf("configured %d Hz SF%d %d Hz 4/%d sync 0x%02x",
		d.opts.FrequencyHz, d.opts.SpreadingFactor, d.opts.BandwidthHz, d.opts.CodingRate, d.opts.SyncWord)
	return nil
}

func (d *Device) Sleep() error {
	return d.writeRegister(REG_OP_MODE, MODE_LONG_RANGE_MODE|MODE_SLEEP)
}

func (d *Device) Idle() error {
	return d.writeRegister(REG_OP_MODE, MODE_LONG_RANGE_MODE|MODE_STDBY)
}

// SetFrequency programs the carrier: frf = f * 2^19 / 32 MHz.
func (d *Device) SetFrequency(hz uint32) error {
	frf := (uint64(hz) << 19) / fxosc
	if err := d.writeRegister(REG_FRF_MSB, byte(frf>>16)); err != nil {
		return err
	}
	if err := d.writeRegister(REG_FRF_MID, byte(frf>>8)); err != nil {
		return err
	}
	if err := d.writeRegister(REG_FRF_LSB, byte(frf)); err != nil {
		return err
	}
	d.opts.FrequencyHz = hz
	return nil
}

// SetTxPower sets the PA_BOOST output level in dBm, clamped to 2..20.
func (d *Device) SetTxPower(level int) error {
	if level < 2 {
		level = 2
	} else if level > 20 {
		level = 20
	}
	var err error
	if level > 17 {
		// +20 dBm needs the high power DAC
		err = d.writeRegister(REG_PA_DAC, 0x87)
		if err == nil {
			err = d.setOCP(140)
		}
		level -= 3
	} else {
		err = d.writeRegister(REG_PA_DAC, 0x84)
		if err == nil {
			err = d.setOCP(100)
		}
	}
	if err != nil {
		return err
	}
	return d.writeRegister(REG_PA_CONFIG, PA_BOOST|byte(level-2))
}

func (d *Device) setOCP(mA int) error {
	trim := 27
	if mA <= 120 {
		trim = (mA - 45) / 5
	} else if mA <= 240 {
		trim = (mA + 30) / 10
	}
	return d.writeRegister(REG_OCP, 0x20|byte(trim&0x1F))
}

func (d *Device) SetSignalBandwidth(hz int) error {
	bw := -1
	for i, v := range bandwidths {
		if hz <= v {
			bw = i
			break
		}
	}
	if bw < 0 {
		return fmt.Errorf("%w: bandwidth %d Hz", ErrInvalidSetting, hz)
	}
	if err := d.modifyRegister(REG_MODEM_CONFIG_1, 0x0F, byte(bw<<4)); err != nil {
		return err
	}
	d.opts.BandwidthHz = bandwidths[bw]
	return d.setLdoFlag()
}

// SetSpreadingFactor accepts 6 to 12.
func (d *Device) SetSpreadingFactor(sf uint8) error {
	if sf < 6 || sf > 12 {
		return fmt.Errorf("%w: spreading factor %d", ErrInvalidSetting, sf)
	}
	optimize, threshold := byte(0xC3), byte(0x0A)
	if sf == 6 {
		optimize, threshold = 0xC5, 0x0C
	}
	if err := d.writeRegister(REG_DETECTION_OPTIMIZE, optimize); err != nil {
		return err
	}
	if err := d.writeRegister(REG_DETECTION_THRESHOLD, threshold); err != nil {
		return err
	}
	if err := d.modifyRegister(REG_MODEM_CONFIG_2, 0x0F, sf<<4); err != nil {
		return err
	}
	d.opts.SpreadingFactor = sf
	return d.setLdoFlag()
}

// setLdoFlag enables low data rate optimisation when a symbol lasts more
// than 16 ms.
func (d *Device) setLdoFlag() error {
	symbolMicros := (int64(1) << d.opts.SpreadingFactor) * 1000000 / int64(d.opts.BandwidthHz)
	var bit byte
	if symbolMicros > 16000 {
		bit = 0x08
	}
	return d.modifyRegister(REG_MODEM_CONFIG_3, 0xF7, bit)
}

// SetCodingRate4 takes the denominator of the 4/x coding rate, 5 to 8.
func (d *Device) SetCodingRate4(denominator uint8) error {
	if denominator < 5 || denominator > 8 {
		return fmt.Errorf("%w: coding rate 4/%d", ErrInvalidSetting, denominator)
	}
	if err := d.modifyRegister(REG_MODEM_CONFIG_1, 0xF1, (denominator-4)<<1); err != nil {
		return err
	}
	d.opts.CodingRate = denominator
	return nil
}

func (d *Device) SetPreambleLength(n uint16) error {
	if err := d.writeRegister(REG_PREAMBLE_MSB, byte(n>>8)); err != nil {
		return err
	}
	return d.writeRegister(REG_PREAMBLE_LSB, byte(n))
}

func (d *Device) SetSyncWord(sw uint8) error {
	return d.writeRegister(REG_SYNC_WORD, sw)
}

func (d *Device) SetCRC(enable bool) error {
	var bit byte
	if enable {
		bit = 0x04
	}
	return d.modifyRegister(REG_MODEM_CONFIG_2, 0xFB, bit)
}

func (d *Device) readRegister(reg byte) (byte, error) {
	return d.transfer(reg&^spiWriteMask, 0)
}

func (d *Device) writeRegister(reg, value byte) error {
	_, err := d.transfer(reg|spiWriteMask, value)
	return err
}

// modifyRegister keeps the bits of reg selected by keep and ORs in set.
func (d *Device) modifyRegister(reg, keep, set byte) error {
	v, err := d.readRegister(reg)
	if err != nil {
		return err
	}
	return d.writeRegister(reg, (v&keep)|set)
}

func (d *Device) transfer(addr, value byte) (byte, error) {
	w := [2]byte{addr, value}
	var r [2]byte
	if cs := d.opts.ChipSelect; cs != nil {
		cs(false)
		defer cs(true)
	}
	if err := d.conn.Tx(w[:], r[:]); err != nil {
		return 0, fmt.Errorf("sx127x: register 0x%02x: %w", addr&^spiWriteMask, err)
	}
	return r[1], nil
}

func (d *Device) debugf(format string, args ...any) {
	if d.opts.Debug {
		log.Printf("[sx127x] "+format, args...)
	}
}
