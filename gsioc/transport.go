package gsioc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.bug.st/serial"
)

// Transport is a raw byte channel with explicit, short read timeouts.
//
// All higher-layer protocol timing is expressed through these primitives;
// nothing in the driver blocks indefinitely. Implementations are not
// goroutine-safe: a Transport must be owned by exactly one Session.
type Transport interface {
	// Write writes all bytes in p.
	Write(p []byte) error

	// ReadByte reads a single byte, waiting at most timeout.
	//
	// ok is false when no byte arrived within the window. Throughout the
	// protocol the absence of a byte is an expected, recoverable condition,
	// so a timeout is not an error.
	ReadByte(timeout time.Duration) (b byte, ok bool, err error)

	// Flush discards any unread input and unsent output, guaranteeing that
	// residual bytes from a previous, possibly failed, exchange cannot
	// contaminate the next one.
	Flush() error

	// Close releases the underlying channel.
	Close() error
}

// serialTransport adapts a go.bug.st/serial port.
type serialTransport struct {
	port serial.Port
	buf  [1]byte
}

// OpenSerial opens the named serial device for GSIOC traffic.
//
// The frame format is fixed by the protocol (8 data bits, even parity,
// 1 stop bit); only the baud rate varies per installation.
func OpenSerial(portName string, baud int) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("gsioc: open port %s: %w", portName, err)
	}

	return &serialTransport{port: port}, nil
}

func (t *serialTransport) Write(p []byte) error {
	for written := 0; written < len(p); {
		n, err := t.port.Write(p[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

func (t *serialTransport) ReadByte(timeout time.Duration) (byte, bool, error) {
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return 0, false, err
	}

	n, err := t.port.Read(t.buf[:])
	if err != nil {
		return 0, false, err
	}

	// go.bug.st/serial signals a read timeout as n == 0 with a nil error.
	if n == 0 {
		return 0, false, nil
	}

	return t.buf[0], true, nil
}

func (t *serialTransport) Flush() error {
	if err := t.port.ResetInputBuffer(); err != nil {
		return err
	}

	return t.port.ResetOutputBuffer()
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}

// connTransport adapts a net.Conn, implementing read timeouts with
// deadlines. It exists to run the protocol against simulated devices and
// serial-device servers that expose a stream socket.
type connTransport struct {
	conn net.Conn
	buf  [1]byte
}

// NewConnTransport wraps conn as a Transport.
func NewConnTransport(conn net.Conn) Transport {
	return &connTransport{conn: conn}
}

func (t *connTransport) Write(p []byte) error {
	for written := 0; written < len(p); {
		n, err := t.conn.Write(p[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

func (t *connTransport) ReadByte(timeout time.Duration) (byte, bool, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, false, err
	}

	n, err := t.conn.Read(t.buf[:])
	if err != nil {
		if isTimeoutError(err) {
			return 0, false, nil
		}

		return 0, false, err
	}

	if n == 0 {
		return 0, false, nil
	}

	return t.buf[0], true, nil
}

// Flush drains pending input until the line is silent. Stream sockets have
// no buffer-reset primitive, so silence within a short window stands in for
// an empty buffer.
func (t *connTransport) Flush() error {
	buf := make([]byte, 64)

	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return err
		}

		if _, err := t.conn.Read(buf); err != nil {
			if isTimeoutError(err) {
				return nil
			}

			return err
		}
	}
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}

func isTimeoutError(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var nerr net.Error

	return errors.As(err, &nerr) && nerr.Timeout()
}
