package protocol

import "fmt"

// NodeID is the one-byte address of a LoRaHome endpoint.
type NodeID uint8

func (id NodeID) IsGateway() bool { return id == GatewayID }

func (id NodeID) IsBroadcast() bool { return id == BroadcastID }

// MessageType tells data from acknowledgments and who asked for an ack.
type MessageType uint8

// RequestsAck reports whether the receiver must answer with an acknowledgment.
func (t MessageType) RequestsAck() bool {
	return t == MsgNodeDataAck || t == MsgGatewayAckReq
}

func (t MessageType) IsAck() bool {
	return t == MsgNodeAck || t == MsgGatewayAck
}

func (t MessageType) String() string {
	switch t {
	case MsgNodeDataNoAck:
		return "node-data"
	case MsgNodeDataAck:
		return "node-data-ack-req"
	case MsgGatewayNoAck:
		return "gateway-data"
	case MsgGatewayAckReq:
		return "gateway-data-ack-req"
	case MsgNodeAck:
		return "node-ack"
	case MsgGatewayAck:
		return "gateway-ack"
	}
	return fmt.Sprintf("type(0x%02x)", uint8(t))
}
