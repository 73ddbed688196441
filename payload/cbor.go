package payload

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR packs documents tighter than JSON, leaving more room for readings.
// Its output may contain zero bytes, so only use it when every peer on the
// network decodes by length rather than as a C string.
type CBOR struct{}

func (CBOR) Name() string { return "cbor" }

func (CBOR) Encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := cbor.Marshal(map[string]any(doc))
	if err != nil {
		return nil, fmt.Errorf("cbor payload: %w", err)
	}
	return checkSize(data)
}

func (CBOR) Decode(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	var doc map[string]any
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cbor payload: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return Document(doc), nil
}
