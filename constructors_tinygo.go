//go:build tinygo || baremetal

// This file is built only for embedded targets (SX127x on the board SPI bus,
// wired like the LoRaHome Arduino nodes: NSS on D10, RESET on D5).
package lorahome

import (
	"machine"

	"github.com/ystepanoff/lorahome/driver/sx127x"
	"github.com/ystepanoff/lorahome/transport"
)

func NewSession(cfg Config, opts ...transport.Option) (*Session, error) {
	if err := machine.SPI0.Configure(machine.SPIConfig{Frequency: 8000000, Mode: 0}); err != nil {
		return nil, err
	}
	cs, rst := machine.D10, machine.D5
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	rst.Configure(machine.PinConfig{Mode: machine.PinOutput})

	radio := sx127x.New(machine.SPI0, sx127x.Options{ChipSelect: cs.Set, Reset: rst.Set})
	if err := radio.Configure(); err != nil {
		return nil, err
	}
	return transport.NewSession(cfg, radio, opts...)
}
