package transport

// Radio is the half-duplex transceiver the link layer talks to. Modem
// parameters (frequency, spreading factor, sync word) are set up by the
// driver before a Session uses it.
type Radio interface {
	TransmitMode() error
	ReceiveMode() error

	BeginPacket() error
	WriteByte(c byte) error
	EndPacket() error

	// ParsePacket returns the size of the next received packet, 0 if none.
	ParsePacket() int
	// Available returns the number of unread bytes of the current packet.
	Available() int
	ReadByte() (byte, error)
}

// SignalReporter is implemented by radios that measure the last received packet.
type SignalReporter interface {
	PacketRSSI() int
	PacketSNR() float64
}
