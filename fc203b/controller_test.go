package fc203b

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBus records buffered commands and serves immediate responses from a
// per-command queue. When a queue runs dry the last response repeats.
type fakeBus struct {
	buffered  []string
	immediate map[byte][]string

	connectCount int
	connectErr   error
	bufferedErr  error
	immediateErr error

	// immediateErrOnce fails the next SendImmediate only, simulating a
	// single dropped reply.
	immediateErrOnce error
}

func newFakeBus() *fakeBus {
	return &fakeBus{immediate: make(map[byte][]string)}
}

func (f *fakeBus) queue(cmd byte, responses ...string) {
	f.immediate[cmd] = append(f.immediate[cmd], responses...)
}

func (f *fakeBus) Connect() error {
	f.connectCount++

	return f.connectErr
}

func (f *fakeBus) SendImmediate(cmd byte) (string, error) {
	if f.immediateErrOnce != nil {
		err := f.immediateErrOnce
		f.immediateErrOnce = nil

		return "", err
	}

	if f.immediateErr != nil {
		return "", f.immediateErr
	}

	q := f.immediate[cmd]
	if len(q) == 0 {
		return "", errors.New("fakeBus: no response queued")
	}

	resp := q[0]
	if len(q) > 1 {
		f.immediate[cmd] = q[1:]
	}

	return resp, nil
}

func (f *fakeBus) SendBuffered(cmd string) error {
	if f.bufferedErr != nil {
		return f.bufferedErr
	}

	f.buffered = append(f.buffered, cmd)

	return nil
}

func newTestController(bus Bus) *Controller {
	return New(bus,
		WithPollInterval(time.Millisecond),
		WithMotionTimeout(100*time.Millisecond),
		WithInterAxisPause(0),
		WithResetDelay(time.Millisecond),
	)
}

func TestEncodeAxis(t *testing.T) {
	tests := []struct {
		name string
		axis byte
		mm   float64
		want string
	}{
		{"plain", 'X', 50.0, "X0500"},
		{"rounds up", 'Y', 12.35, "Y0124"},
		{"rounds down", 'Y', 12.34, "Y0123"},
		{"clamps negative", 'X', -5, "X0000"},
		{"clamps high", 'X', 1500, "X9999"},
		{"max reachable", 'Y', 999.9, "Y9999"},
		{"zero", 'X', 0, "X0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeAxis(tt.axis, tt.mm))
		})
	}
}

func TestParseAxisMM(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want AxisReading
	}{
		{"stationary", "S 1234", AxisReading{MM: 123.4, Valid: true}},
		{"moving", "M 0050", AxisReading{MM: 5.0, Valid: true}},
		{"zero", "S 0000", AxisReading{MM: 0, Valid: true}},
		{"three digit value", "S 123", AxisReading{MM: 12.3, Valid: true}},
		{"too short", "S", AxisReading{}},
		{"truncated value", "S 1", AxisReading{}},
		{"garbage", "S ??", AxisReading{}},
		{"non-numeric", "S ####", AxisReading{}},
		{"empty", "", AxisReading{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAxisMM(tt.resp))
		})
	}
}

func TestMoveToXYSequencesXBeforeY(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0500")
	bus.queue(cmdReadY, "S 0300")

	c := newTestController(bus)

	require.NoError(t, c.MoveToXY(context.Background(), 50, 30))
	require.Equal(t, []string{"X0500", "Y0300"}, bus.buffered)
}

func TestMoveToXYWaitsForStationary(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "M 0100", "M 0300", "S 0500")
	bus.queue(cmdReadY, "M 0000", "M 0100", "S 0300")

	c := newTestController(bus)

	require.NoError(t, c.MoveToXY(context.Background(), 50, 30))
}

func TestMoveToXYMotionTimeout(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "M 0100")
	bus.queue(cmdReadY, "M 0000")

	c := newTestController(bus)

	err := c.MoveToXY(context.Background(), 50, 30)
	require.ErrorIs(t, err, ErrMotionTimeout)
}

func TestMoveToXYContextCanceled(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "M 0100")
	bus.queue(cmdReadY, "M 0000")

	c := New(bus,
		WithPollInterval(10*time.Millisecond),
		WithMotionTimeout(time.Second),
		WithInterAxisPause(0),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.MoveToXY(ctx, 50, 30)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMoveToTube(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0100")
	bus.queue(cmdReadY, "S 0100")

	c := newTestController(bus)

	require.NoError(t, c.MoveToTube(context.Background(), 7))
	require.Equal(t, []string{"T007"}, bus.buffered)
}

func TestMoveToTubeClamps(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0100")
	bus.queue(cmdReadY, "S 0100")

	c := newTestController(bus)

	require.NoError(t, c.MoveToTube(context.Background(), 0))
	require.NoError(t, c.MoveToTube(context.Background(), 5000))
	require.Equal(t, []string{"T001", "T999"}, bus.buffered)
}

func TestHome(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0000")
	bus.queue(cmdReadY, "S 0000")

	c := newTestController(bus)

	require.NoError(t, c.Home(context.Background()))
	require.Equal(t, []string{"X0000", "Y0000"}, bus.buffered)
}

func TestPosition(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0505")
	bus.queue(cmdReadY, "S 0300")

	c := newTestController(bus)

	x, y, err := c.Position()
	require.NoError(t, err)
	assert.True(t, x.Valid)
	assert.True(t, y.Valid)
	assert.InDelta(t, 50.5, x.MM, 0.05)
	assert.InDelta(t, 30.0, y.MM, 0.05)
}

func TestPositionPartialInvalid(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0505")
	bus.queue(cmdReadY, "M")

	c := newTestController(bus)

	x, y, err := c.Position()
	require.NoError(t, err)
	assert.True(t, x.Valid)
	assert.False(t, y.Valid)
}

func TestPositionBusError(t *testing.T) {
	bus := newFakeBus()
	bus.immediateErr = errors.New("bus down")

	c := newTestController(bus)

	_, _, err := c.Position()
	require.Error(t, err)
}

func TestTube(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadTube, " 42")

	c := newTestController(bus)

	n, err := c.Tube()
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestTubeUndefinedPosition(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadTube, "---")

	c := newTestController(bus)

	n, err := c.Tube()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestVersion(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadVersion, "203B v2.0")

	c := newTestController(bus)

	v, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, "203B v2.0", v)
}

func TestResetReconnects(t *testing.T) {
	bus := newFakeBus()
	// The reset command gets no response; the controller must tolerate that.
	c := newTestController(bus)

	require.NoError(t, c.Reset(context.Background()))
	assert.Equal(t, 1, bus.connectCount)
}

func TestResetCanceledBeforeReconnect(t *testing.T) {
	bus := newFakeBus()

	c := New(bus, WithResetDelay(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Reset(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, bus.connectCount)
}

func TestBeepClamps(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(bus)

	require.NoError(t, c.Beep(500*time.Millisecond))
	require.NoError(t, c.Beep(time.Minute))
	require.NoError(t, c.Beep(-time.Second))
	require.Equal(t, []string{"G005", "G100", "G000"}, bus.buffered)
}

func TestSetDivert(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(bus)

	require.NoError(t, c.SetDivert(true))
	require.NoError(t, c.SetDivert(false))
	require.Equal(t, []string{"V1", "V0"}, bus.buffered)
}

func TestRelaxMotors(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(bus)

	require.NoError(t, c.RelaxMotors())
	require.Equal(t, []string{"Mxy"}, bus.buffered)
}

func TestWaitMotionCompleteSurvivesDroppedReply(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "S 0500")
	bus.queue(cmdReadY, "S 0300")
	bus.immediateErrOnce = errors.New("gsioc: response timeout")

	c := New(bus, WithPollInterval(time.Millisecond))

	ok := c.WaitMotionComplete(context.Background(), time.Second)
	assert.True(t, ok)
}

func TestWaitMotionCompleteAllRepliesDropped(t *testing.T) {
	bus := newFakeBus()
	bus.immediateErr = errors.New("gsioc: response timeout")

	c := New(bus, WithPollInterval(5*time.Millisecond))

	start := time.Now()
	ok := c.WaitMotionComplete(context.Background(), 30*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestWaitMotionCompleteTimeoutBounds(t *testing.T) {
	bus := newFakeBus()
	bus.queue(cmdReadX, "M 0100")
	bus.queue(cmdReadY, "M 0000")

	c := New(bus, WithPollInterval(5*time.Millisecond))

	start := time.Now()
	ok := c.WaitMotionComplete(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}
