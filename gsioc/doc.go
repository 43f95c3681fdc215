// Package gsioc implements the Gilson Serial Input/Output Channel (GSIOC)
// slave-addressing and command protocol used by Gilson laboratory
// instruments such as fraction collectors and liquid handlers.
//
// GSIOC is a half-duplex, multidrop serial protocol: up to 64 slave devices
// share one RS-232/RS-422 line behind an interface module, and exactly one
// slave is addressed at any moment. The serial frame format is fixed at
// 8 data bits, even parity, 1 stop bit; the device default baud rate is
// 19200.
//
// # Addressing
//
// A master claims a slave by writing the reserved disconnect-all byte (0xFF),
// pausing 20 ms for the hardware to settle, and then writing the addressing
// byte (unit ID + 128). The slave confirms by echoing the addressing byte.
// Because any other traffic on the bus may re-address a different slave
// between exchanges, a Session re-runs this handshake before every command
// rather than only once at connect time.
//
// # Command framings
//
// The protocol has two command classes with different framing and
// acknowledgment rules:
//
//   - Immediate commands are single-character status queries ('X', 'Y', 'T',
//     '%', '$'). The slave streams the response one character at a time; the
//     master acknowledges each character with ACK (0x06) before the next is
//     sent, and the final character arrives with its high bit set.
//
//   - Buffered commands are action strings such as "X0500" or "T003", framed
//     by LF (0x0A) and CR (0x0D). The slave answers the opening LF with '#'
//     while its command buffer is occupied; the master backs off 100 ms and
//     retries the LF exactly once. Each command character is echoed by the
//     slave, but echoes are dropped while the instrument is moving, so echo
//     verification is best-effort.
//
// The bus permits one outstanding exchange at a time; Session serializes all
// commands and performs only blocking, timeout-bounded I/O.
package gsioc
