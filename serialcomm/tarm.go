// serialcomm/tarm.go
package serialcomm

import (
	"fmt"

	"github.com/tarm/serial"
)

type tarmPort struct {
	*serial.Port
	name string
}

func openTarm(cfg Config) (Port, error) {
	portCfg := &serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		Parity:      serial.ParityNone,
		ReadTimeout: cfg.ReadQuantum,
	}
	port, err := serial.OpenPort(portCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	return &tarmPort{Port: port, name: cfg.Name}, nil
}

func (p *tarmPort) String() string {
	return p.name
}
