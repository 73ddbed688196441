package sx127x

import "time"

// ReceiveMode enables inverted IQ and listens continuously. Nodes receive
// with inverted IQ and transmit without it, so they only hear the gateway.
func (d *Device) ReceiveMode() error {
	if err := d.writeRegister(REG_INVERTIQ, 0x66); err != nil {
		return err
	}
	if err := d.writeRegister(REG_INVERTIQ2, 0x19); err != nil {
		return err
	}
	// DIO0 => RxDone
	if err := d.writeRegister(REG_DIO_MAPPING_1, 0x00); err != nil {
		return err
	}
	if err := d.modifyRegister(REG_MODEM_CONFIG_1, 0xFE, 0x00); err != nil {
		return err
	}
	return d.writeRegister(REG_OP_MODE, MODE_LONG_RANGE_MODE|MODE_RX_CONTINUOUS)
}

// TransmitMode idles the chip and restores normal IQ.
func (d *Device) TransmitMode() error {
	if err := d.Idle(); err != nil {
		return err
	}
	if err := d.writeRegister(REG_INVERTIQ, 0x27); err != nil {
		return err
	}
	return d.writeRegister(REG_INVERTIQ2, 0x1D)
}

func (d *Device) isTransmitting() (bool, error) {
	mode, err := d.readRegister(REG_OP_MODE)
	if err != nil {
		return false, err
	}
	if mode&MODE_TX == MODE_TX {
		return true, nil
	}
	flags, err := d.readRegister(REG_IRQ_FLAGS)
	if err != nil {
		return false, err
	}
	if flags&IRQ_TX_DONE_MASK != 0 {
		return false, d.writeRegister(REG_IRQ_FLAGS, IRQ_TX_DONE_MASK)
	}
	return false, nil
}

// BeginPacket starts a new packet at the bottom of the FIFO.
func (d *Device) BeginPacket() error {
	busy, err := d.isTransmitting()
	if err != nil {
		return err
	}
	if busy {
		return ErrTxBusy
	}
	if err := d.Idle(); err != nil {
		return err
	}
	// explicit header mode
	if err := d.modifyRegister(REG_MODEM_CONFIG_1, 0xFE, 0x00); err != nil {
		return err
	}
	if err := d.writeRegister(REG_FIFO_ADDR_PTR, 0); err != nil {
		return err
	}
	if err := d.writeRegister(REG_PAYLOAD_LENGTH, 0); err != nil {
		return err
	}
	d.inPacket = true
	d.txLength = 0
	return nil
}

func (d *Device) WriteByte(c byte) error {
	if !d.inPacket {
		return ErrNotInPacket
	}
	if d.txLength >= fifoSize-1 {
		return ErrPacketTooLong
	}
	if err := d.writeRegister(REG_FIFO, c); err != nil {
		return err
	}
	d.txLength++
	return nil
}

// EndPacket transmits the FIFO and waits for TxDone or TxTimeout.
func (d *Device) EndPacket() error {
	if !d.inPacket {
		return ErrNotInPacket
	}
	d.inPacket = false
	if err := d.writeRegister(REG_PAYLOAD_LENGTH, byte(d.txLength)); err != nil {
		return err
	}
	if err := d.writeRegister(REG_OP_MODE, MODE_LONG_RANGE_MODE|MODE_TX); err != nil {
		return err
	}

	deadline := d.now().Add(d.opts.TxTimeout)
	for {
		flags, err := d.readRegister(REG_IRQ_FLAGS)
		if err != nil {
			return err
		}
		if flags&IRQ_TX_DONE_MASK != 0 {
			break
		}
		if !d.now().Before(deadline) {
			d.Idle()
			return ErrTxTimeout
		}
		d.sleep(time.Millisecond)
	}
	d.debugf("sent %d bytes", d.txLength)
	return d.writeRegister(REG_IRQ_FLAGS, IRQ_TX_DONE_MASK)
}

// ParsePacket returns the size of a packet received since the last call,
// or 0. Packets that fail the radio CRC are discarded.
func (d *Device) ParsePacket() int {
	flags, err := d.readRegister(REG_IRQ_FLAGS)
	if err != nil || flags == 0 {
		return 0
	}
	if err := d.writeRegister(REG_IRQ_FLAGS, flags); err != nil {
		return 0
	}
	if flags&IRQ_RX_DONE_MASK == 0 {
		return 0
	}
	if flags&IRQ_PAYLOAD_CRC_ERROR_MASK != 0 {
		d.debugf("payload crc error")
		return 0
	}

	n, err := d.readRegister(REG_RX_NB_BYTES)
	if err != nil {
		return 0
	}
	addr, err := d.readRegister(REG_FIFO_RX_CURRENT_ADDR)
	if err != nil {
		return 0
	}
	if err := d.writeRegister(REG_FIFO_ADDR_PTR, addr); err != nil {
		return 0
	}
	d.packetIndex = 0
	d.packetLength = int(n)
	return d.packetLength
}

func (d *Device) Available() int {
	return d.packetLength - d.packetIndex
}

func (d *Device) ReadByte() (byte, error) {
	if d.Available() <= 0 {
		return 0, ErrNoData
	}
	d.packetIndex++
	return d.readRegister(REG_FIFO)
}

// PacketRSSI returns the RSSI of the last packet in dBm.
func (d *Device) PacketRSSI() int {
	v, err := d.readRegister(REG_PKT_RSSI_VALUE)
	if err != nil {
		return 0
	}
	offset := 157
	if d.opts.FrequencyHz < 868000000 {
		offset = 164
	}
	return int(v) - offset
}

// PacketSNR returns the SNR of the last packet in dB.
func (d *Device) PacketSNR() float64 {
	v, err := d.readRegister(REG_PKT_SNR_VALUE)
	if err != nil {
		return 0
	}
	return float64(int8(v)) * 0.25
}
