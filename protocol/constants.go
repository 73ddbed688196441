package protocol

// Generic LoRaHome wire constants (platform independent). All higher layers should depend on this file.
const (
	// Frame sizing
	// Layout:
	//   Emitter (1) | Recipient (1) | Type (1) | NetworkID (2) | Counter (2) | PayloadLen (1) | Payload (0-128) | CRC16 (2)
	// Multi-byte fields are little-endian. The CRC covers everything before it.

	FrameHeaderSize = 8
	FrameFooterSize = 2 // CRC16 only, the security field is reserved

	MaxPayloadSize = 128
	MinFrameSize   = FrameHeaderSize + FrameFooterSize
	AckFrameSize   = MinFrameSize
	MaxFrameSize   = FrameHeaderSize + MaxPayloadSize + FrameFooterSize

	// Byte offsets inside the header
	IndexEmitter     = 0
	IndexRecipient   = 1
	IndexMessageType = 2
	IndexNetworkID   = 3
	IndexCounter     = 5
	IndexPayloadSize = 7
	IndexPayload     = 8

	// Reserved node addresses
	GatewayID   NodeID = 0x00
	BroadcastID NodeID = 0xFF

	// Defaults used when a configuration value is left at zero
	DefaultNetworkID  = 0xACDC
	DefaultAckTimeout = 2000 // milliseconds
	DefaultMaxRetries = 3
)

// MessageType values carried at IndexMessageType.
const (
	MsgNodeDataNoAck MessageType = 0x00
	MsgNodeDataAck   MessageType = 0x01
	MsgGatewayNoAck  MessageType = 0x02
	MsgGatewayAckReq MessageType = 0x03
	MsgNodeAck       MessageType = 0x04
	MsgGatewayAck    MessageType = 0x06
)
