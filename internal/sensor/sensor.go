// Package sensor provides the readings reported by the agent.
package sensor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultValue is the reading reported when no sensor is attached.
	DefaultValue = 10.0

	// DefaultBaudRate is the serial speed of the reference sensor board.
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds a single Read on a serial source.
	DefaultReadTimeout = 2 * time.Second

	maxLineLength = 256
)

// ErrTimeout is returned when no complete line arrives in time.
var ErrTimeout = errors.New("timed out waiting for sensor line")

// Source produces one reading per call.
type Source interface {
	Read() (float64, error)
}

// Fixed always reports Value.
type Fixed struct {
	Value float64
}

func (f Fixed) Read() (float64, error) { return f.Value, nil }

// Serial reads one newline-terminated number per Read from a serial port.
type Serial struct {
	mu      sync.Mutex
	port    io.ReadCloser
	pending []byte
	timeout time.Duration
	now     func() time.Time
}

// OpenSerial opens portName at baudRate.
func OpenSerial(portName string, baudRate int) (*Serial, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	// Short port timeout; Read enforces the overall deadline.
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return NewSerial(port, DefaultReadTimeout), nil
}

// NewSerial wraps an already opened port. A zero-byte read from port is
// treated as a poll timeout, as go.bug.st/serial reports one.
func NewSerial(port io.ReadCloser, timeout time.Duration) *Serial {
	return &Serial{port: port, timeout: timeout, now: time.Now}
}

// Read returns the next line parsed as a float. Blank lines are skipped.
func (s *Serial) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(s.timeout)
	for {
		line, err := s.readLine(deadline)
		if err != nil {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid sensor reading %q: %w", line, err)
		}
		return v, nil
	}
}

func (s *Serial) readLine(deadline time.Time) (string, error) {
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := string(s.pending[:i])
			s.pending = s.pending[i+1:]
			return line, nil
		}
		if len(s.pending) > maxLineLength {
			s.pending = nil
			return "", fmt.Errorf("sensor line exceeds %d bytes", maxLineLength)
		}

		n, err := s.port.Read(buf)
		s.pending = append(s.pending, buf[:n]...)
		if err != nil {
			return "", fmt.Errorf("failed to read sensor: %w", err)
		}
		if n == 0 && !s.now().Before(deadline) {
			return "", ErrTimeout
		}
	}
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}

// ListPorts returns the serial ports present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
