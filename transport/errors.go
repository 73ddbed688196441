package transport

import "errors"

var (
	ErrTxUnavailable = errors.New("transmit slot busy: waiting for ack")
	ErrNoPendingSend = errors.New("no send awaiting ack")
	ErrSendFailed    = errors.New("send failed: no ack after max retries")
	ErrInvalidNodeID = errors.New("node id is reserved (gateway or broadcast)")
	ErrInvalidConfig = errors.New("invalid link configuration")
)
