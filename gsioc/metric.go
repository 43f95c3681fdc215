package gsioc

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for a bus session.
// Counters can be used as the value of a prometheus CounterFunc.
type SessionMetrics struct {
	// ConnectCount indicates the number of successful addressing handshakes.
	ConnectCount atomic.Uint64
	// ImmediateSendCount indicates the number of Immediate commands sent.
	ImmediateSendCount atomic.Uint64
	// BufferedSendCount indicates the number of Buffered commands completed.
	BufferedSendCount atomic.Uint64
	// BusyRetryCount indicates the number of busy retries of Buffered commands.
	BusyRetryCount atomic.Uint64
	// EchoMissCount indicates the number of dropped character echoes.
	EchoMissCount atomic.Uint64
	// AddressMissCount indicates the number of missing re-addressing echoes
	// tolerated before commands.
	AddressMissCount atomic.Uint64
	// TimeoutCount indicates the number of Immediate reply timeouts.
	TimeoutCount atomic.Uint64
}

func (m *SessionMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *SessionMetrics) incImmediateSendCount() {
	m.ImmediateSendCount.Add(1)
}

func (m *SessionMetrics) incBufferedSendCount() {
	m.BufferedSendCount.Add(1)
}

func (m *SessionMetrics) incBusyRetryCount() {
	m.BusyRetryCount.Add(1)
}

func (m *SessionMetrics) incEchoMissCount() {
	m.EchoMissCount.Add(1)
}

func (m *SessionMetrics) incAddressMissCount() {
	m.AddressMissCount.Add(1)
}

func (m *SessionMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}
