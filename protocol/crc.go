package protocol

import "github.com/sigurn/crc16"

// CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, MSB first, no final xor.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum returns the frame checksum of data.
// Peers return 0 for an empty buffer instead of the init value, so we do too.
func Checksum(data []byte) uint16 {
	if len(data) == 0 {
		return 0
	}
	return crc16.Checksum(data, crcTable)
}
