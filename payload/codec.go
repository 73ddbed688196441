// Package payload encodes the application documents carried in a frame payload.
//
// The link layer treats payloads as opaque bytes; a Codec turns them into
// Documents and guarantees that an encoded document fits in one frame.
package payload

import "github.com/ystepanoff/lorahome/protocol"

// Document is a structured application message, e.g. {"t":21,"h":40}.
type Document map[string]any

// Codec converts Documents to and from frame payloads.
type Codec interface {
	// Encode returns at most protocol.MaxPayloadSize bytes or ErrPayloadTooLarge.
	Encode(doc Document) ([]byte, error)
	Decode(data []byte) (Document, error)
	Name() string
}

// Clone returns a shallow copy of d, so callers can add keys without
// touching the original.
func (d Document) Clone() Document {
	out := make(Document, len(d)+2)
	for k, v := range d {
		out[k] = v
	}
	return out
}

func checkSize(data []byte) ([]byte, error) {
	if len(data) > protocol.MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

// ByName returns the codec registered under name ("json" or "cbor").
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSON{}, true
	case "cbor":
		return CBOR{}, true
	}
	return nil, false
}
