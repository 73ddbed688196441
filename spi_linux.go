//go:build linux && !tinygo && !baremetal

package lorahome

import (
	"io"

	"github.com/ystepanoff/lorahome/config"
	"github.com/ystepanoff/lorahome/driver/sx127x"
)

func openSX127x(c config.Config) (Radio, io.Closer, error) {
	conn, err := sx127x.OpenSPIDev(c.Radio.Device, c.Radio.SpeedHz)
	if err != nil {
		return nil, nil, err
	}
	radio := sx127x.New(conn, c.SX127x())
	if err := radio.Configure(); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return radio, conn, nil
}
