package payload

import (
	"encoding/json"
	"fmt"
)

// JSON is the codec spoken by the gateway and by ArduinoJson based nodes.
// Keys are emitted in sorted order, so equal documents encode identically.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("json payload: %w", err)
	}
	return checkSize(data)
}

func (JSON) Decode(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("json payload: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
