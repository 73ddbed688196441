//go:build !linux && !tinygo && !baremetal

package lorahome

import (
	"errors"
	"io"

	"github.com/ystepanoff/lorahome/config"
)

var errNoSPIDev = errors.New("sx127x: spidev is only available on linux")

func openSX127x(config.Config) (Radio, io.Closer, error) {
	return nil, nil, errNoSPIDev
}
