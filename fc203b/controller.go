package fc203b

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cntsep/go-gsioc/internal/wait"
	"github.com/cntsep/go-gsioc/logger"
)

// Axis and device limits of the FC-203B.
const (
	// MaxAxisMM is the highest reachable coordinate on either axis.
	MaxAxisMM = 999.9

	// maxAxisTenths is MaxAxisMM in the wire encoding (tenths of mm).
	maxAxisTenths = 9999

	// MinTube and MaxTube bound the tube numbers the rack addressing accepts.
	MinTube = 1
	MaxTube = 999

	// maxBeepTenths caps the beep duration argument (tenths of a second).
	maxBeepTenths = 100
)

// Immediate command characters.
const (
	cmdReadX       byte = 'X'
	cmdReadY       byte = 'Y'
	cmdReadTube    byte = 'T'
	cmdReadVersion byte = '%'
	cmdReset       byte = '$'
)

// stationaryFlag prefixes an axis status response while the axis is at rest.
const stationaryFlag = 'S'

// Default motion parameters.
const (
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultMotionTimeout  = 10 * time.Second
	DefaultInterAxisPause = 100 * time.Millisecond
	DefaultResetDelay     = 2 * time.Second
)

// ErrMotionTimeout means both axes failed to report stationary within the
// motion timeout. The head position is unknown; read it back before
// continuing.
var ErrMotionTimeout = errors.New("fc203b: motion did not complete in time")

// Bus is the command surface the controller needs from a GSIOC session.
// *gsioc.Session satisfies it.
type Bus interface {
	Connect() error
	SendImmediate(cmd byte) (string, error)
	SendBuffered(cmd string) error
}

// AxisReading is one axis position report. Valid is false when the
// instrument's response could not be parsed, which happens transiently
// during motion.
type AxisReading struct {
	MM    float64
	Valid bool
}

// Controller drives one FC-203B fraction collector.
//
// It is not goroutine-safe; the underlying bus serializes exchanges, but
// multi-command sequences such as MoveToXY assume a single caller.
type Controller struct {
	bus    Bus
	logger logger.Logger

	pollInterval   time.Duration
	motionTimeout  time.Duration
	interAxisPause time.Duration
	resetDelay     time.Duration
}

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithPollInterval sets the axis status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMotionTimeout sets the default deadline for a motion to complete.
func WithMotionTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.motionTimeout = d
		}
	}
}

// WithInterAxisPause sets the pause between the X and Y move commands.
func WithInterAxisPause(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.interAxisPause = d
		}
	}
}

// WithResetDelay sets the wait after a device reset before reconnecting.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.resetDelay = d
		}
	}
}

// WithControllerLogger sets the logger for the controller.
func WithControllerLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller speaking over bus.
func New(bus Bus, opts ...Option) *Controller {
	c := &Controller{
		bus:            bus,
		logger:         logger.GetLogger(),
		pollInterval:   DefaultPollInterval,
		motionTimeout:  DefaultMotionTimeout,
		interAxisPause: DefaultInterAxisPause,
		resetDelay:     DefaultResetDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// MoveToXY moves the head to (x, y) millimeters and waits for the motion to
// complete. Coordinates are clamped to the reachable envelope.
//
// The X command is always issued before the Y command; the instrument
// misbehaves when the order is reversed.
func (c *Controller) MoveToXY(ctx context.Context, x, y float64) error {
	if err := c.bus.SendBuffered(encodeAxis('X', x)); err != nil {
		return err
	}

	if !wait.Sleep(ctx, c.interAxisPause) {
		return ctx.Err()
	}

	if err := c.bus.SendBuffered(encodeAxis('Y', y)); err != nil {
		return err
	}

	c.logger.Debug("fc203b: move issued", "x", x, "y", y)

	if !c.WaitMotionComplete(ctx, c.motionTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}

		return fmt.Errorf("%w: target (%.1f, %.1f)", ErrMotionTimeout, x, y)
	}

	return nil
}

// MoveToTube moves the head to the rack position of tube n and waits for the
// motion to complete. n is clamped to [MinTube, MaxTube].
func (c *Controller) MoveToTube(ctx context.Context, n int) error {
	if n < MinTube {
		n = MinTube
	}
	if n > MaxTube {
		n = MaxTube
	}

	if err := c.bus.SendBuffered(fmt.Sprintf("T%03d", n)); err != nil {
		return err
	}

	c.logger.Debug("fc203b: tube move issued", "tube", n)

	if !c.WaitMotionComplete(ctx, c.motionTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}

		return fmt.Errorf("%w: tube %d", ErrMotionTimeout, n)
	}

	return nil
}

// Home moves the head to the (0, 0) origin.
func (c *Controller) Home(ctx context.Context) error {
	return c.MoveToXY(ctx, 0, 0)
}

// Position reads both axis positions. Each reading is independently marked
// invalid when the instrument's response cannot be parsed.
func (c *Controller) Position() (x, y AxisReading, err error) {
	x, err = c.readAxis(cmdReadX)
	if err != nil {
		return AxisReading{}, AxisReading{}, err
	}

	y, err = c.readAxis(cmdReadY)
	if err != nil {
		return AxisReading{}, AxisReading{}, err
	}

	return x, y, nil
}

// Tube reads the current tube number. Zero means the head is not at a
// defined tube position.
func (c *Controller) Tube() (int, error) {
	resp, err := c.bus.SendImmediate(cmdReadTube)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, nil
	}

	return n, nil
}

// Version reads the device's firmware identification string.
func (c *Controller) Version() (string, error) {
	return c.bus.SendImmediate(cmdReadVersion)
}

// Reset performs a full device reset and re-establishes the session.
//
// The instrument drops off the bus while rebooting, so the reset command's
// own response is not expected and its error is ignored.
func (c *Controller) Reset(ctx context.Context) error {
	if _, err := c.bus.SendImmediate(cmdReset); err != nil {
		c.logger.Debug("fc203b: reset response discarded", "error", err)
	}

	if !wait.Sleep(ctx, c.resetDelay) {
		return ctx.Err()
	}

	return c.bus.Connect()
}

// Beep sounds the buzzer for d, clamped to [0, 10s].
func (c *Controller) Beep(d time.Duration) error {
	tenths := int(math.Round(d.Seconds() * 10))
	if tenths < 0 {
		tenths = 0
	}
	if tenths > maxBeepTenths {
		tenths = maxBeepTenths
	}

	return c.bus.SendBuffered(fmt.Sprintf("G%03d", tenths))
}

// SetDivert switches the diverter valve. true routes flow to collection,
// false to waste.
func (c *Controller) SetDivert(collect bool) error {
	if collect {
		return c.bus.SendBuffered("V1")
	}

	return c.bus.SendBuffered("V0")
}

// RelaxMotors releases the holding torque on both axis motors so the head
// can be positioned by hand.
func (c *Controller) RelaxMotors() error {
	return c.bus.SendBuffered("Mxy")
}

// WaitMotionComplete polls both axes until each reports stationary, the
// timeout expires, or ctx is canceled. It returns true only when both axes
// came to rest.
//
// A failed status query is treated as "still moving": the instrument drops
// replies while the head is in motion, so a missing response is an expected
// transient and the poll continues until the deadline.
func (c *Controller) WaitMotionComplete(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for {
		if c.axesStationary() {
			return true
		}

		if time.Now().After(deadline) {
			c.logger.Warn("fc203b: motion poll timed out", "timeout", timeout)

			return false
		}

		if !wait.Sleep(ctx, c.pollInterval) {
			return false
		}
	}
}

func (c *Controller) axesStationary() bool {
	xResp, err := c.bus.SendImmediate(cmdReadX)
	if err != nil {
		c.logger.Debug("fc203b: status poll dropped", "axis", "X", "error", err)

		return false
	}

	if !stationary(xResp) {
		return false
	}

	yResp, err := c.bus.SendImmediate(cmdReadY)
	if err != nil {
		c.logger.Debug("fc203b: status poll dropped", "axis", "Y", "error", err)

		return false
	}

	return stationary(yResp)
}

func (c *Controller) readAxis(cmd byte) (AxisReading, error) {
	resp, err := c.bus.SendImmediate(cmd)
	if err != nil {
		return AxisReading{}, err
	}

	return parseAxisMM(resp), nil
}

// parseAxisMM decodes an axis status response such as "S 1234" into
// millimeters. Responses are a status flag, a motion digit, and the position
// in tenths of a millimeter; anything shorter than a flag plus a three-digit
// value or non-numeric is transient noise during motion and yields an
// invalid reading.
func parseAxisMM(resp string) AxisReading {
	if len(resp) < 5 {
		return AxisReading{}
	}

	tenths, err := strconv.Atoi(strings.TrimSpace(resp[2:]))
	if err != nil {
		return AxisReading{}
	}

	return AxisReading{MM: float64(tenths) / 10, Valid: true}
}

func stationary(resp string) bool {
	return len(resp) > 0 && resp[0] == stationaryFlag
}

// encodeAxis renders a move command for one axis, rounding mm to the nearest
// tenth and clamping into the reachable envelope.
func encodeAxis(axis byte, mm float64) string {
	tenths := int(math.Round(mm * 10))
	if tenths < 0 {
		tenths = 0
	}
	if tenths > maxAxisTenths {
		tenths = maxAxisTenths
	}

	return fmt.Sprintf("%c%04d", axis, tenths)
}
