package payload

import "errors"

var (
	ErrPayloadTooLarge = errors.New("encoded payload exceeds frame capacity")
	ErrEmptyPayload    = errors.New("empty payload")
)
