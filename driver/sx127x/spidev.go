//go:build linux && !tinygo

package sx127x

import (
	"fmt"

	"golang.org/x/exp/io/spi"
)

// DefaultSPIDev is the first chip select of the first bus on a Raspberry Pi.
const DefaultSPIDev = "/dev/spidev0.0"

// OpenSPIDev opens a Linux spidev bus suitable for New. The kernel drives
// chip select, so Options.ChipSelect can stay nil.
func OpenSPIDev(dev string, maxSpeedHz int64) (*spi.Device, error) {
	if dev == "" {
		dev = DefaultSPIDev
	}
	if maxSpeedHz == 0 {
		maxSpeedHz = 8000000
	}
	conn, err := spi.Open(&spi.Devfs{
		Dev:      dev,
		Mode:     spi.Mode0,
		MaxSpeed: maxSpeedHz,
	})
	if err != nil {
		return nil, fmt.Errorf("sx127x: open %s: %w", dev, err)
	}
	if err := conn.SetBitOrder(spi.MSBFirst); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SetCSChange(false); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
