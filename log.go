//go:build !tinygo && !baremetal

package lorahome

import (
	"io"
	"log"
	"os"

	"github.com/KarpelesLab/ringbuf"
)

var logbuf *ringbuf.Writer

// InitLog copies the standard logger into a 1 MiB ring buffer so recent
// link activity can be dumped with LogDmesg.
func InitLog() {
	var err error

	logbuf, err = ringbuf.New(1024 * 1024)
	if err == nil {
		log.SetOutput(io.MultiWriter(os.Stdout, logbuf))
	} else {
		log.Printf("[lorahome] Failed to setup logbuf: %s", err)
	}
}

func LogTarget() io.Writer {
	return logbuf
}

func LogDmesg(w io.Writer) (int64, error) {
	if logbuf == nil {
		return 0, nil
	}
	r := logbuf.Reader()
	defer r.Close()
	return io.Copy(w, r)
}

func ShutdownLog() {
	if logbuf != nil {
		logbuf.Close()
	}
}
