// serialcomm/serialcomm.go
package serialcomm

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Supported serial drivers.
const (
	DriverTarm  = "tarm"
	DriverBugst = "bugst"
)

const (
	DefaultBaud        = 9600
	DefaultReadQuantum = 10 * time.Millisecond
)

// ErrPortClosed is returned by operations on a closed port.
var ErrPortClosed = errors.New("serial port is closed")

// Config describes how to open the serial line.
type Config struct {
	// Name is the OS port name, e.g. "/dev/ttyUSB0" or "COM5".
	Name string

	// Baud is the line rate. Default is 9600.
	Baud int

	// Driver selects the serial library: "tarm" (default) or "bugst".
	Driver string

	// ReadQuantum bounds how long a single Read may block when no data is
	// available. The tarm driver rounds it up to 100ms (VTIME granularity).
	ReadQuantum time.Duration
}

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.Driver == "" {
		c.Driver = DriverTarm
	}
	if c.ReadQuantum <= 0 {
		c.ReadQuantum = DefaultReadQuantum
	}
	return c
}

// Port is a byte-oriented duplex link to the device.
// Read must return promptly (within the read quantum) when no data is buffered,
// reporting either (0, nil) or (0, io.EOF).
type Port interface {
	io.ReadWriteCloser

	// Flush discards any received but unread input.
	Flush() error
}

// Opener opens a Port from a Config.
type Opener func(cfg Config) (Port, error)

// Open opens the serial port with the configured driver.
func Open(cfg Config) (Port, error) {
	cfg = cfg.withDefaults()
	if cfg.Name == "" {
		return nil, errors.New("serial port name is required")
	}

	switch cfg.Driver {
	case DriverTarm:
		return openTarm(cfg)
	case DriverBugst:
		return openBugst(cfg)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}
