package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame represents a LoRaHome frame transferred over the radio link.
// Layout: Emitter(1) | Recipient(1) | Type(1) | NetworkID(2) | Counter(2) | PayloadLen(1) | Payload(0-128) | CRC16(2)
// Total size 10 to 138 bytes.
type Frame struct {
	NetworkID uint16
	Emitter   NodeID
	Recipient NodeID
	Type      MessageType
	Counter   uint16
	Payload   []byte
	CRC       uint16 // decoded Frames only; recomputed by the encoder
}

// NewAck builds the payload-less acknowledgment for counter.
func NewAck(networkID uint16, emitter, recipient NodeID, counter uint16, ackType MessageType) *Frame {
	return &Frame{
		NetworkID: networkID,
		Emitter:   emitter,
		Recipient: recipient,
		Type:      ackType,
		Counter:   counter,
	}
}

// Size is the number of bytes Encode writes.
func (f *Frame) Size() int {
	return FrameHeaderSize + len(f.Payload) + FrameFooterSize
}

// Encode serialises f into buf and returns the number of bytes written.
// A buffer of MaxFrameSize bytes always fits.
func (f *Frame) Encode(buf []byte) (int, error) {
	if len(f.Payload) > MaxPayloadSize {
		return 0, ErrInvalidPayload
	}
	n := f.Size()
	if len(buf) < n {
		return 0, ErrBufferTooSmall
	}

	buf[IndexEmitter] = byte(f.Emitter)
	buf[IndexRecipient] = byte(f.Recipient)
	buf[IndexMessageType] = byte(f.Type)
	binary.LittleEndian.PutUint16(buf[IndexNetworkID:], f.NetworkID)
	binary.LittleEndian.PutUint16(buf[IndexCounter:], f.Counter)
	buf[IndexPayloadSize] = byte(len(f.Payload))
	copy(buf[IndexPayload:], f.Payload)

	crcPos := FrameHeaderSize + len(f.Payload)
	f.CRC = Checksum(buf[:crcPos])
	binary.LittleEndian.PutUint16(buf[crcPos:], f.CRC)

	return n, nil
}

// EncodeFrame returns the on-air bytes of f.
func EncodeFrame(f *Frame) ([]byte, error) {
	if f == nil {
		return nil, ErrInvalidPayload
	}
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrInvalidPayload
	}
	data := make([]byte, f.Size())
	if _, err := f.Encode(data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeFrame parses data into a Frame. With verifyCRC set, the trailing
// checksum must match before any header field is trusted.
func DecodeFrame(data []byte, verifyCRC bool) (*Frame, error) {
	if len(data) < MinFrameSize {
		return nil, ErrFrameTooShort
	}
	if len(data) > MaxFrameSize {
		return nil, ErrFrameTooLong
	}

	crcPos := len(data) - FrameFooterSize
	recvCRC := binary.LittleEndian.Uint16(data[crcPos:])
	if verifyCRC && Checksum(data[:crcPos]) != recvCRC {
		return nil, ErrChecksum
	}

	payloadLen := int(data[IndexPayloadSize])
	if payloadLen > MaxPayloadSize {
		return nil, ErrInvalidPayload
	}
	if FrameHeaderSize+payloadLen != crcPos {
		return nil, ErrLengthMismatch
	}

	f := &Frame{
		NetworkID: binary.LittleEndian.Uint16(data[IndexNetworkID:]),
		Emitter:   NodeID(data[IndexEmitter]),
		Recipient: NodeID(data[IndexRecipient]),
		Type:      MessageType(data[IndexMessageType]),
		Counter:   binary.LittleEndian.Uint16(data[IndexCounter:]),
		Payload:   make([]byte, payloadLen),
		CRC:       recvCRC,
	}
	copy(f.Payload, data[IndexPayload:IndexPayload+payloadLen])

	return f, nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("net=0x%04x %d->%d %s counter=%d payload=%q",
		f.NetworkID, f.Emitter, f.Recipient, f.Type, f.Counter, f.Payload)
}
