package protocol

import "errors"

var (
	ErrFrameTooShort  = errors.New("frame too short")
	ErrFrameTooLong   = errors.New("frame too long")
	ErrChecksum       = errors.New("checksum error")
	ErrInvalidPayload = errors.New("invalid payload size")
	ErrLengthMismatch = errors.New("payload size does not match frame length")
	ErrBufferTooSmall = errors.New("buffer too small for frame")
)
