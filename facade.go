// Package lorahome provides a façade to the LoRaHome node stack: the frame
// codec, the link session and the node runner.
package lorahome

import (
	"github.com/ystepanoff/lorahome/node"
	"github.com/ystepanoff/lorahome/payload"
	"github.com/ystepanoff/lorahome/protocol"
	"github.com/ystepanoff/lorahome/transport"
)

// The radio constructors are split into build-tag specific files:
// - constructors_tinygo.go - SX127x on the board SPI bus (//go:build tinygo || baremetal)
// - constructors_host.go - stub, spidev or serial radios (//go:build !tinygo && !baremetal)

type (
	NodeID      = protocol.NodeID
	MessageType = protocol.MessageType
	Frame       = protocol.Frame
	Document    = payload.Document
	Session     = transport.Session
	Config      = transport.Config
	Event       = transport.Event
	Radio       = transport.Radio
	Device      = node.Device
	Runner      = node.Runner
)

var (
	ErrChecksum      = protocol.ErrChecksum
	ErrTxUnavailable = transport.ErrTxUnavailable
	ErrSendFailed    = transport.ErrSendFailed
)

const (
	GatewayID        = protocol.GatewayID
	BroadcastID      = protocol.BroadcastID
	DefaultNetworkID = protocol.DefaultNetworkID

	EventNone      = transport.EventNone
	EventDelivered = transport.EventDelivered
	EventMessage   = transport.EventMessage
)

func DefaultConfig(id NodeID) Config { return transport.DefaultConfig(id) }

func NewRunner(s *Session, d Device, opts node.Options) *Runner { return node.NewRunner(s, d, opts) }
