package gsioc

import (
	"fmt"
	"time"
)

// SendImmediate issues a single-character status query and returns the
// accumulated response string.
//
// The response is read one character at a time; every non-terminal character
// is acknowledged with ACK before the next is read, and the terminal
// character arrives with its high bit set. If the full response does not
// arrive within the reply timeout, SendImmediate returns ErrTimeout.
func (s *Session) SendImmediate(cmd byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Connected {
		return "", ErrNotConnected
	}

	return s.sendImmediateLocked(cmd)
}

func (s *Session) sendImmediateLocked(cmd byte) (string, error) {
	if err := s.reAddress(); err != nil {
		return "", err
	}

	if err := s.transport.Write([]byte{cmd}); err != nil {
		return "", s.fail(err)
	}

	s.metrics.incImmediateSendCount()

	// Explicit accumulator loop with a fixed deadline so the timeout
	// accounting stays exact across any number of characters.
	var resp []byte

	deadline := time.Now().Add(s.cfg.replyTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.metrics.incTimeoutCount()

			return "", fmt.Errorf("%w: immediate %q after %v",
				ErrTimeout, string(cmd), s.cfg.replyTimeout)
		}

		b, ok, err := s.transport.ReadByte(remaining)
		if err != nil {
			return "", s.fail(err)
		}
		if !ok {
			continue // deadline reached; the next iteration reports it
		}

		if b >= 0x80 {
			// High bit marks the final character of the response.
			resp = append(resp, b&0x7F)

			return string(resp), nil
		}

		resp = append(resp, b)

		if err := s.transport.Write([]byte{ACK}); err != nil {
			return "", s.fail(err)
		}
	}
}

// SendBuffered issues an action command string such as "X0500" or "T003".
//
// The exchange is framed by LF and CR. A '#' answer to the opening LF means
// the slave's command buffer is occupied; the protocol allows exactly one
// retry after a fixed backoff, and a second busy answer yields ErrBusBusy.
// This framing has no structured response payload.
func (s *Session) SendBuffered(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Connected {
		return ErrNotConnected
	}

	return s.sendBufferedLocked(cmd)
}

func (s *Session) sendBufferedLocked(cmd string) error {
	if err := s.reAddress(); err != nil {
		return err
	}

	ready, err := s.openBuffered()
	if err != nil {
		return err
	}

	if !ready {
		// The single retry the protocol allows.
		s.metrics.incBusyRetryCount()
		s.logger.Debug("gsioc: slave busy, retrying once",
			"command", cmd,
			"backoff", s.cfg.busyRetryDelay)

		time.Sleep(s.cfg.busyRetryDelay)

		ready, err = s.openBuffered()
		if err != nil {
			return err
		}
		if !ready {
			return fmt.Errorf("%w: buffered %q", ErrBusBusy, cmd)
		}
	}

	// Transmit one character at a time, discarding the echo of each.
	// Echo verification is best-effort: the instrument drops echoes during
	// motion, so a missing echo never aborts the command.
	for i := 0; i < len(cmd); i++ {
		if err := s.transport.Write([]byte{cmd[i]}); err != nil {
			return s.fail(err)
		}

		if s.cfg.charPace > 0 {
			time.Sleep(s.cfg.charPace)
		}

		_, ok, err := s.transport.ReadByte(s.cfg.echoTimeout)
		if err != nil {
			return s.fail(err)
		}
		if !ok {
			s.metrics.incEchoMissCount()
		}
	}

	if err := s.transport.Write([]byte{CR}); err != nil {
		return s.fail(err)
	}

	// Let the device begin acting on the command before the bus is reused.
	time.Sleep(s.cfg.actionDelay)

	s.metrics.incBufferedSendCount()

	return nil
}

// openBuffered sends the LF that opens a Buffered command and reports
// whether the slave is ready (false means it answered busy).
func (s *Session) openBuffered() (bool, error) {
	if err := s.transport.Write([]byte{LF}); err != nil {
		return false, s.fail(err)
	}

	time.Sleep(s.cfg.settleTime)

	b, ok, err := s.transport.ReadByte(s.cfg.echoTimeout)
	if err != nil {
		return false, s.fail(err)
	}

	if ok && b == busyChar {
		return false, nil
	}

	// Anything else is the LF echo, or a dropped echo; proceed either way.
	return true, nil
}
