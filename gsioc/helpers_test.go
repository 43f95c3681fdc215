package gsioc

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUnitID = 6

// newTestConfig builds a session configuration with timings shrunk so the
// protocol's mandatory pauses do not dominate test runtime.
func newTestConfig(t *testing.T, unitID int, opts ...SessionOption) *SessionConfig {
	t.Helper()

	base := []SessionOption{
		WithSettleTime(time.Millisecond),
		WithEchoTimeout(50 * time.Millisecond),
		WithReplyTimeout(200 * time.Millisecond),
		WithBusyRetryDelay(5 * time.Millisecond),
		WithCharPace(0),
		WithActionDelay(time.Millisecond),
	}

	cfg, err := NewSessionConfig(unitID, append(base, opts...)...)
	require.NoError(t, err)

	return cfg
}

// newTestSession returns a session wired to one end of a net.Pipe and the
// other end, which the test drives as the fake slave device.
func newTestSession(t *testing.T, unitID int, opts ...SessionOption) (*Session, net.Conn) {
	t.Helper()

	client, device := net.Pipe()

	s, err := NewSession(NewConnTransport(client), newTestConfig(t, unitID, opts...))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = device.Close()
	})

	return s, device
}

// readOneByte reads a single byte from the fake device side.
// Device-side helpers run in goroutines, so they use assert, never require.
func readOneByte(t *testing.T, conn net.Conn) byte {
	t.Helper()

	buf := make([]byte, 1)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))

	if _, err := conn.Read(buf); !assert.NoError(t, err) {
		return 0
	}

	return buf[0]
}

func mustWrite(t *testing.T, conn net.Conn, b byte) {
	t.Helper()

	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))

	_, err := conn.Write([]byte{b})
	assert.NoError(t, err)
}

// expectAddressing plays the slave side of one addressing handshake:
// consume the release byte and the addressing byte, then echo the address.
func expectAddressing(t *testing.T, conn net.Conn, unitID int) {
	t.Helper()

	addr := addressBase + byte(unitID)

	assert.Equal(t, DisconnectAll, readOneByte(t, conn))
	assert.Equal(t, addr, readOneByte(t, conn))
	mustWrite(t, conn, addr)
}

// serveImmediate plays the slave side of one Immediate command: verify the
// command byte, then send the response one character at a time, consuming an
// ACK between characters and setting the high bit on the last one.
func serveImmediate(t *testing.T, conn net.Conn, wantCmd byte, response string) {
	t.Helper()

	assert.Equal(t, wantCmd, readOneByte(t, conn))

	for i := 0; i < len(response); i++ {
		if i == len(response)-1 {
			mustWrite(t, conn, response[i]|0x80)

			return
		}

		mustWrite(t, conn, response[i])
		assert.Equal(t, ACK, readOneByte(t, conn))
	}
}

// serveBuffered plays the slave side of one Buffered command, answering busy
// to the first busyCount LFs, and returns the command string received.
func serveBuffered(t *testing.T, conn net.Conn, busyCount int) string {
	t.Helper()

	for i := 0; i < busyCount; i++ {
		assert.Equal(t, LF, readOneByte(t, conn))
		mustWrite(t, conn, busyChar)
	}

	assert.Equal(t, LF, readOneByte(t, conn))
	mustWrite(t, conn, LF)

	var cmd []byte

	for {
		b := readOneByte(t, conn)
		if b == CR {
			return string(cmd)
		}

		cmd = append(cmd, b)
		mustWrite(t, conn, b)
	}
}

// serveConnect plays the slave side of Session.Connect: the addressing
// handshake, the re-addressing before the version probe, and the probe
// response itself.
func serveConnect(t *testing.T, conn net.Conn, unitID int, version string) {
	t.Helper()

	expectAddressing(t, conn, unitID)
	expectAddressing(t, conn, unitID)
	serveImmediate(t, conn, '%', version)
}

// connectSession drives s into the Connected state against the fake device.
func connectSession(t *testing.T, s *Session, device net.Conn) {
	t.Helper()

	done := make(chan struct{})

	go func() {
		defer close(done)
		serveConnect(t, device, s.cfg.unitID, "203B v2.0")
	}()

	require.NoError(t, s.Connect())
	<-done

	require.Equal(t, Connected, s.State())
}
