package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Arm timing defaults.
const (
	DefaultReadTimeout  = 200 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	errArmClosed = errors.New("arm connection closed")
	errNoReply   = errors.New("no reply from controller board")
)

// Port is the serial connection the arm talks through.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// OpenFunc opens a serial port.
type OpenFunc func(name string, baudRate int) (Port, error)

// OpenSerial opens a serial port with 8N1 framing.
func OpenSerial(name string, baudRate int) (Port, error) {
	return serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// ArmOptions configures the hardware connection.
type ArmOptions struct {
	Port     string
	BaudRate int

	Attempts    int           // handshake attempts, at least 1
	RetryDelay  time.Duration // wait between attempts
	SettleDelay time.Duration // wait after opening before the first frame

	ReadTimeout  time.Duration
	PollInterval time.Duration // is-in-position polling for synchronized moves

	Open   OpenFunc
	Logger *logrus.Logger
}

// Arm is a serial connection to the Palletizer controller board.
// It forwards commands as-is; callers clamp values beforehand.
type Arm struct {
	port   Port
	name   string
	opts   ArmOptions
	log    *logrus.Logger
	rx     []byte
	closed bool
}

// NewArm opens the serial port, powers the arm on and checks that the board
// answers. Failures are reported as *RobotConnectionError.
func NewArm(ctx context.Context, opts ArmOptions) (*Arm, error) {
	if opts.Open == nil {
		opts.Open = OpenSerial
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		arm, err := connect(ctx, opts)
		if err == nil {
			opts.Logger.WithField("port", opts.Port).Info("connected to robot")
			return arm, nil
		}
		lastErr = err
		opts.Logger.WithFields(logrus.Fields{
			"port":    opts.Port,
			"attempt": attempt,
			"of":      opts.Attempts,
		}).WithError(err).Warn("robot connection failed")

		if attempt < opts.Attempts {
			if err := sleepCtx(ctx, opts.RetryDelay); err != nil {
				lastErr = err
				break
			}
		}
	}
	return nil, &RobotConnectionError{Port: opts.Port, Err: lastErr}
}

func connect(ctx context.Context, opts ArmOptions) (*Arm, error) {
	port, err := opts.Open(opts.Port, opts.BaudRate)
	if err != nil {
		return nil, fmt.Errorf("open port: %w", err)
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	a := &Arm{port: port, name: opts.Port, opts: opts, log: opts.Logger}

	if err := sleepCtx(ctx, opts.SettleDelay); err != nil {
		port.Close()
		return nil, err
	}
	if err := a.write(ctx, encodeFrame(cmdPowerOn)); err != nil {
		port.Close()
		return nil, fmt.Errorf("power on: %w", err)
	}
	angles, err := a.Angles(ctx)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	a.log.WithField("angles", angles).Debug("robot handshake ok")

	return a, nil
}

// Port returns the serial port name.
func (a *Arm) Port() string {
	return a.name
}

// SendAngles starts a move to the given joint angles and returns once the
// command is written.
func (a *Arm) SendAngles(ctx context.Context, angles Angles, speed int) error {
	if err := a.write(ctx, sendAnglesFrame(angles, speed)); err != nil {
		return fmt.Errorf("send angles: %w", err)
	}
	return nil
}

// SendAnglesSync sends the angles and blocks until the board reports the arm
// in position. It has no timeout of its own; cancel ctx to stop waiting.
func (a *Arm) SendAnglesSync(ctx context.Context, angles Angles, speed int) error {
	if err := a.SendAngles(ctx, angles, speed); err != nil {
		return err
	}
	for {
		done, err := a.InPosition(ctx, angles)
		if err != nil {
			return fmt.Errorf("wait for position: %w", err)
		}
		if done {
			return nil
		}
		if err := sleepCtx(ctx, a.opts.PollInterval); err != nil {
			return err
		}
	}
}

// SetColor sets the LED color on the end effector.
func (a *Arm) SetColor(ctx context.Context, c Color) error {
	if err := a.write(ctx, setColorFrame(c)); err != nil {
		return fmt.Errorf("set color: %w", err)
	}
	return nil
}

// Angles reads the current joint angles.
func (a *Arm) Angles(ctx context.Context) (Angles, error) {
	if err := a.write(ctx, encodeFrame(cmdGetAngles)); err != nil {
		return Angles{}, err
	}
	data, err := a.readReply(ctx, cmdGetAngles)
	if err != nil {
		return Angles{}, err
	}
	return decodeAngles(data)
}

// InPosition reports whether the arm has reached the given angles.
func (a *Arm) InPosition(ctx context.Context, angles Angles) (bool, error) {
	if err := a.write(ctx, isInPositionFrame(angles)); err != nil {
		return false, err
	}
	data, err := a.readReply(ctx, cmdIsInPosition)
	if err != nil {
		return false, err
	}
	return len(data) > 0 && data[0] == 1, nil
}

// Close closes the serial port. It is idempotent and tolerates a device that
// has already disappeared.
func (a *Arm) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.port.Close(); err != nil {
		a.log.WithField("port", a.name).WithError(err).Debug("close serial port")
	}
	return nil
}

func (a *Arm) write(ctx context.Context, buf []byte) error {
	if a.closed {
		return errArmClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.port.Write(buf)
	return err
}

func (a *Arm) readReply(ctx context.Context, cmd byte) ([]byte, error) {
	deadline := time.Now().Add(a.opts.ReadTimeout)
	tmp := make([]byte, 64)
	for {
		for {
			f, n, ok := parseFrame(a.rx)
			a.rx = a.rx[n:]
			if !ok {
				break
			}
			if f.cmd == cmd {
				return f.data, nil
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, errNoReply
		}

		n, err := a.port.Read(tmp)
		if err != nil {
			return nil, err
		}
		a.rx = append(a.rx, tmp[:n]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
