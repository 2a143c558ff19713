// Package serial owns the radio dongle's serial link: opening the tty,
// multiplexing readable-fd and timer events in a single cooperative wait
// loop, and assembling the dongle's raw byte stream into canonical wM-Bus
// frames.
package serial

import (
	"fmt"
	"io"
	"os"

	"github.com/tarm/serial"
)

// Flavour identifies which dongle framing adapter FrameAssembler should
// use for a device's raw byte stream.
type Flavour int

const (
	FlavourIM871A Flavour = iota
	FlavourAMB8465
	FlavourRTLWMBus
	FlavourCUL
)

// Device is one open dongle: its serial port, flavour adapter, and the
// frame assembler accumulating its byte stream.
type Device struct {
	Path      string
	Flavour   Flavour
	port      io.ReadWriteCloser
	Assembler *FrameAssembler
}

// OpenTTY opens path at baud and wraps it as a Device ready for the
// manager to listen on. An open error is wrapped with a not-found or
// permission-denied message when the underlying os error says so, and
// with a generic message otherwise (a busy device is not told apart);
// the original error stays reachable through errors.Unwrap.
func OpenTTY(path string, baud int, flavour Flavour) (*Device, error) {
	cfg := &serial.Config{Name: path, Baud: baud}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}
	return &Device{
		Path:      path,
		Flavour:   flavour,
		port:      port,
		Assembler: NewFrameAssembler(flavour),
	}, nil
}

func classifyOpenError(path string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("serial: device %s not found: %w", path, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("serial: permission denied opening %s: %w", path, err)
	}
	return fmt.Errorf("serial: open %s: %w", path, err)
}

// Read satisfies io.Reader so the manager's wait loop can read a chunk
// whenever the device's descriptor is readable.
func (d *Device) Read(p []byte) (int, error) {
	return d.port.Read(p)
}

// Close closes the underlying port.
func (d *Device) Close() error {
	return d.port.Close()
}
