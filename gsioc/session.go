package gsioc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cntsep/go-gsioc/logger"
)

// GSIOC control bytes.
const (
	// DisconnectAll releases whichever slave is currently addressed.
	DisconnectAll byte = 0xFF

	// ACK acknowledges each response character of an Immediate command.
	ACK byte = 0x06

	// LF opens a Buffered command.
	LF byte = 0x0A

	// CR terminates a Buffered command.
	CR byte = 0x0D

	// busyChar is sent instead of the LF echo while the slave's command
	// buffer is occupied.
	busyChar byte = '#'

	// addressBase is added to the unit ID to form the addressing byte.
	addressBase byte = 128
)

// Sentinel errors for the GSIOC protocol.
var (
	// ErrNoResponse means the slave did not echo the addressing byte.
	// Recoverable: retry Connect.
	ErrNoResponse = errors.New("gsioc: no addressing echo from slave")

	// ErrTimeout means no response arrived within the reply window.
	// Recoverable: the caller decides whether to retry.
	ErrTimeout = errors.New("gsioc: response timeout")

	// ErrBusBusy means the slave answered busy to both the initial LF and
	// the single retry of a Buffered command. Recoverable: the caller may
	// retry the whole operation.
	ErrBusBusy = errors.New("gsioc: slave busy after retry")

	// ErrNotConnected means the session has no verified addressing
	// handshake; call Connect first.
	ErrNotConnected = errors.New("gsioc: session not connected")
)

// ConnectionState is the addressing state of a Session.
type ConnectionState int32

const (
	// Disconnected means no verified addressing handshake is in effect.
	Disconnected ConnectionState = iota

	// Connected means the slave acknowledged the addressing byte.
	Connected
)

func (s ConnectionState) String() string {
	if s == Connected {
		return "connected"
	}

	return "disconnected"
}

// Session is one logical connection to a single slave on a shared GSIOC bus.
//
// The bus is multidrop and may carry other traffic between calls, so the
// session re-asserts addressing before every exchange. A Session must own
// its Transport exclusively; all exchanges are serialized internally because
// the protocol permits one command in flight at a time.
type Session struct {
	transport Transport
	cfg       *SessionConfig
	logger    logger.Logger

	// mu serializes exchanges from multiple logical callers in-process.
	mu    sync.Mutex
	state atomic.Int32

	metrics SessionMetrics
}

// NewSession creates a Session for the slave described by cfg, speaking
// over t. The session starts Disconnected.
func NewSession(t Transport, cfg *SessionConfig) (*Session, error) {
	if t == nil {
		return nil, errors.New("gsioc: transport is nil")
	}
	if cfg == nil {
		return nil, errors.New("gsioc: session config is nil")
	}

	return &Session{
		transport: t,
		cfg:       cfg,
		logger:    cfg.logger,
	}, nil
}

// State returns the current addressing state.
func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// Metrics returns the metrics associated with the session.
func (s *Session) Metrics() *SessionMetrics {
	return &s.metrics
}

// Connect performs the addressing handshake and marks the session Connected.
//
// On success it also reads the slave's firmware version as a sanity probe;
// a failed probe is logged, not fatal. On a missing or mismatched echo it
// returns ErrNoResponse and the session stays Disconnected.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.addressSlave(); err != nil {
		s.setState(Disconnected)

		return err
	}

	s.setState(Connected)
	s.metrics.incConnectCount()

	// Version probe ('%'): confirms a sane slave but need not succeed.
	version, err := s.sendImmediateLocked('%')
	if err != nil {
		if s.State() != Connected {
			// The transport failed mid-probe; that is fatal after all.
			return err
		}

		s.logger.Warn("gsioc: version probe failed",
			"unitID", s.cfg.unitID,
			"error", err)

		return nil
	}

	s.logger.Info("gsioc: slave connected",
		"unitID", s.cfg.unitID,
		"version", version)

	return nil
}

// Disconnect releases the slave and marks the session Disconnected.
//
// Teardown is best-effort: a failed write is logged, never surfaced, and
// calling Disconnect on an already-disconnected session is a no-op on the
// state. The Transport stays open; use Close to release it.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transport.Write([]byte{DisconnectAll}); err != nil {
		s.logger.Debug("gsioc: disconnect write failed", "error", err)
	}

	time.Sleep(s.cfg.settleTime)
	s.setState(Disconnected)
}

// Close disconnects the slave and closes the underlying Transport.
func (s *Session) Close() error {
	s.Disconnect()

	return s.transport.Close()
}

func (s *Session) setState(state ConnectionState) {
	s.state.Store(int32(state))
}

// addressSlave claims the bus for this session's unit: flush, release any
// previously addressed slave, address ours, and verify the echo.
func (s *Session) addressSlave() error {
	if err := s.transport.Flush(); err != nil {
		return fmt.Errorf("gsioc: flush: %w", err)
	}

	if err := s.transport.Write([]byte{DisconnectAll}); err != nil {
		return fmt.Errorf("gsioc: release slaves: %w", err)
	}

	time.Sleep(s.cfg.settleTime)

	addr := addressBase + byte(s.cfg.unitID)
	if err := s.transport.Write([]byte{addr}); err != nil {
		return fmt.Errorf("gsioc: address slave: %w", err)
	}

	time.Sleep(s.cfg.settleTime)

	b, ok, err := s.transport.ReadByte(s.cfg.echoTimeout)
	if err != nil {
		return fmt.Errorf("gsioc: read addressing echo: %w", err)
	}
	if !ok {
		return ErrNoResponse
	}
	if b != addr {
		return fmt.Errorf("%w: echo 0x%02X, want 0x%02X", ErrNoResponse, b, addr)
	}

	return nil
}

// reAddress re-claims the bus before a command.
//
// A missing echo here is tolerated: the instrument drops echoes while its
// head is moving, and the command exchange that follows surfaces any real
// failure. Transport-level errors still drop the session.
func (s *Session) reAddress() error {
	err := s.addressSlave()
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNoResponse) {
		s.metrics.incAddressMissCount()
		s.logger.Debug("gsioc: re-addressing echo missing",
			"unitID", s.cfg.unitID,
			"error", err)

		return nil
	}

	return s.fail(err)
}

// fail records a transport-level failure. The bus state is now unknown, so
// the session drops to Disconnected and the caller must Connect again.
func (s *Session) fail(err error) error {
	s.setState(Disconnected)

	return err
}
