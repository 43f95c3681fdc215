package gsioc

import (
	"errors"
	"fmt"
	"time"

	"github.com/cntsep/go-gsioc/logger"
)

// Default protocol parameters. The pauses come from the GSIOC hardware
// timing requirements and are not arbitrary tunables; they are configurable
// mainly so tests can run fast.
const (
	// DefaultBaudRate is the device default line speed.
	DefaultBaudRate = 19200

	// DefaultSettleTime is the hardware settling pause after each addressing
	// byte and after the LF that opens a Buffered command.
	DefaultSettleTime = 20 * time.Millisecond

	// DefaultEchoTimeout bounds the wait for a single echoed byte.
	DefaultEchoTimeout = 20 * time.Millisecond

	// DefaultReplyTimeout bounds an entire Immediate-command response.
	DefaultReplyTimeout = time.Second

	// DefaultBusyRetryDelay is the backoff before the single busy retry of a
	// Buffered command.
	DefaultBusyRetryDelay = 100 * time.Millisecond

	// DefaultCharPace is the inter-character pause while transmitting a
	// Buffered command string.
	DefaultCharPace = 10 * time.Millisecond

	// DefaultActionDelay is the pause after the terminating CR, giving the
	// device time to start acting on the command.
	DefaultActionDelay = 50 * time.Millisecond
)

// MaxUnitID is the highest valid unit ID on a GSIOC bus (6-bit address space).
const MaxUnitID = 63

// SessionConfig holds the protocol parameters of one bus session.
type SessionConfig struct {
	unitID int

	settleTime     time.Duration
	echoTimeout    time.Duration
	replyTimeout   time.Duration
	busyRetryDelay time.Duration
	charPace       time.Duration
	actionDelay    time.Duration

	logger logger.Logger
}

// NewSessionConfig creates a session configuration for the slave with the
// given unit ID. opts are functional options applied in order; see the
// With* functions.
func NewSessionConfig(unitID int, opts ...SessionOption) (*SessionConfig, error) {
	if unitID < 0 || unitID > MaxUnitID {
		return nil, fmt.Errorf("gsioc: unit ID %d out of range [0, %d]", unitID, MaxUnitID)
	}

	cfg := &SessionConfig{
		unitID:         unitID,
		settleTime:     DefaultSettleTime,
		echoTimeout:    DefaultEchoTimeout,
		replyTimeout:   DefaultReplyTimeout,
		busyRetryDelay: DefaultBusyRetryDelay,
		charPace:       DefaultCharPace,
		actionDelay:    DefaultActionDelay,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// UnitID returns the slave's bus address.
func (cfg *SessionConfig) UnitID() int { return cfg.unitID }

// SettleTime returns the pause after addressing bytes and the opening LF.
func (cfg *SessionConfig) SettleTime() time.Duration { return cfg.settleTime }

// EchoTimeout returns the wait bound for a single echoed byte.
func (cfg *SessionConfig) EchoTimeout() time.Duration { return cfg.echoTimeout }

// ReplyTimeout returns the overall deadline of an Immediate response.
func (cfg *SessionConfig) ReplyTimeout() time.Duration { return cfg.replyTimeout }

// BusyRetryDelay returns the backoff before the single busy retry.
func (cfg *SessionConfig) BusyRetryDelay() time.Duration { return cfg.busyRetryDelay }

// CharPace returns the inter-character transmit pause of Buffered commands.
func (cfg *SessionConfig) CharPace() time.Duration { return cfg.charPace }

// ActionDelay returns the pause after the CR terminating a Buffered command.
func (cfg *SessionConfig) ActionDelay() time.Duration { return cfg.actionDelay }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// --- SessionOption ---

// SessionOption is a functional option for configuring a SessionConfig.
type SessionOption interface {
	apply(*SessionConfig) error
}

type sessionOptFunc func(*SessionConfig) error

func (f sessionOptFunc) apply(cfg *SessionConfig) error { return f(cfg) }

// WithSettleTime sets the pause after addressing bytes and the opening LF.
func WithSettleTime(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d <= 0 {
			return errors.New("gsioc: settle time must be positive")
		}
		cfg.settleTime = d

		return nil
	})
}

// WithEchoTimeout sets the wait bound for a single echoed byte.
func WithEchoTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d <= 0 {
			return errors.New("gsioc: echo timeout must be positive")
		}
		cfg.echoTimeout = d

		return nil
	})
}

// WithReplyTimeout sets the overall deadline of an Immediate response.
func WithReplyTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d <= 0 {
			return errors.New("gsioc: reply timeout must be positive")
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithBusyRetryDelay sets the backoff before the single busy retry of a
// Buffered command.
func WithBusyRetryDelay(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d <= 0 {
			return errors.New("gsioc: busy retry delay must be positive")
		}
		cfg.busyRetryDelay = d

		return nil
	})
}

// WithCharPace sets the inter-character transmit pause of Buffered commands.
// Zero disables the pause.
func WithCharPace(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < 0 {
			return errors.New("gsioc: char pace must not be negative")
		}
		cfg.charPace = d

		return nil
	})
}

// WithActionDelay sets the pause after the CR terminating a Buffered command.
func WithActionDelay(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < 0 {
			return errors.New("gsioc: action delay must not be negative")
		}
		cfg.actionDelay = d

		return nil
	})
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("gsioc: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
