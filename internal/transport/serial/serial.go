package serial

import (
	"fmt"
	"io"
	"sync"
	"time"

	serialport "go.bug.st/serial"

	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/mesh-supervisor/internal/supervisor"
)

// Compile-time checks: the port satisfies both halves of the transport.
var (
	_ supervisor.ByteReader = (*Port)(nil)
	_ io.Writer             = (*Port)(nil)
)

// Port is a serial device transport.
//
// The receive side is owned by a single reader goroutine (the line framer);
// the send side serialises concurrent writers so reply and telemetry lines
// never interleave mid-line.
type Port struct {
	writeMu sync.Mutex
	port    serialport.Port

	// timeout caches the last applied read timeout so ReadByte only hits
	// the driver ioctl when the value changes. Only the reader goroutine
	// touches it.
	timeout time.Duration
}

// Open opens the configured serial device.
//
// Parameters:
//   - cfg: Serial section of the runtime configuration
//
// Returns:
//   - *Port: Open transport ready for use
//   - error: nil on success, otherwise the underlying open error
func Open(cfg config.SerialConfig) (*Port, error) {
	mode := &serialport.Mode{BaudRate: cfg.Baud}

	port, err := serialport.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Device, err)
	}

	return &Port{port: port, timeout: -1}, nil
}

// ReadByte returns the next byte from the device, waiting at most timeout.
// ok is false when the wait expired with no byte available.
//
// Not safe for concurrent use; the framer is the only caller.
func (p *Port) ReadByte(timeout time.Duration) (byte, bool, error) {
	if timeout != p.timeout {
		if err := p.port.SetReadTimeout(timeout); err != nil {
			return 0, false, fmt.Errorf("setting read timeout: %w", err)
		}
		p.timeout = timeout
	}

	var buf [1]byte
	n, err := p.port.Read(buf[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil // timeout, no data pending
	}
	return buf[0], true, nil
}

// Write sends bytes to the device. Safe for concurrent use.
func (p *Port) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.port.Write(b)
}

// Close closes the device.
func (p *Port) Close() error {
	return p.port.Close()
}
