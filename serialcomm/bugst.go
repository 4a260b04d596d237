// serialcomm/bugst.go
package serialcomm

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type bugstPort struct {
	port serial.Port
	name string
}

func openBugst(cfg Config) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}

	if err := port.SetReadTimeout(cfg.ReadQuantum); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return &bugstPort{port: port, name: cfg.Name}, nil
}

func (p *bugstPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	return n, translateBugstErr(err)
}

func (p *bugstPort) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	return n, translateBugstErr(err)
}

func (p *bugstPort) Flush() error {
	return translateBugstErr(p.port.ResetInputBuffer())
}

func (p *bugstPort) Close() error {
	return p.port.Close()
}

func (p *bugstPort) String() string {
	return p.name
}

func translateBugstErr(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %v", ErrPortClosed, err)
	}
	return err
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates serial ports, including USB details where the OS exposes them.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Fall back to bare names when detailed enumeration is unsupported.
		names, nerr := serial.GetPortsList()
		if nerr != nil {
			return nil, fmt.Errorf("list serial ports: %w", err)
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}
