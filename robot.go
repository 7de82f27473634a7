package palletizer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/palletizer/pkg/dispatch"
	"github.com/gwillem/palletizer/pkg/robot"
)

// Config is the connection configuration. Zero Host, UDPPort and BaudRate
// take their defaults (127.0.0.1, 5005, 115200).
type Config = robot.ConnectionConfig

// Mode selects which backends a Robot drives.
type Mode = robot.Mode

const (
	ModeReal    = robot.ModeReal
	ModeVirtual = robot.ModeVirtual
	ModeBoth    = robot.ModeBoth
)

// Errors returned by Robot, re-exported for errors.As.
type (
	InvalidConfigError    = robot.InvalidConfigError
	RobotConnectionError  = robot.RobotConnectionError
	UnknownJointError     = robot.UnknownJointError
	ClosedControllerError = dispatch.ClosedControllerError
)

// Option customizes a Robot.
type Option func(*options)

type options struct {
	logger *logrus.Logger
	limits robot.Limits
	dialer dispatch.Dialer
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLimits overrides the joint limits.
func WithLimits(l robot.Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithDialer replaces how the hardware and simulator backends are opened.
func WithDialer(d dispatch.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// Robot drives the arm, the simulator, or both through one API.
type Robot struct {
	ctrl *dispatch.Controller
	cfg  Config
}

// New validates cfg and connects the backends its mode requires. An invalid
// configuration fails with *InvalidConfigError before anything is opened.
func New(ctx context.Context, cfg Config, opts ...Option) (*Robot, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctrl, err := dispatch.NewController(ctx, dispatch.Config{
		Connection: cfg,
		Limits:     o.limits,
		Logger:     o.logger,
		Dialer:     o.dialer,
	})
	if err != nil {
		return nil, err
	}
	return &Robot{ctrl: ctrl, cfg: cfg}, nil
}

// Sim creates a simulation-only Robot sending to host:udpPort. Unlike a zero
// Config.UDPPort, udpPort 0 is rejected rather than defaulted.
func Sim(ctx context.Context, host string, udpPort int, opts ...Option) (*Robot, error) {
	if err := checkUDPPort(udpPort); err != nil {
		return nil, err
	}
	return New(ctx, Config{Mode: ModeVirtual, Host: host, UDPPort: udpPort}, opts...)
}

// Connect creates a hardware-only Robot on the given serial port.
func Connect(ctx context.Context, port string, opts ...Option) (*Robot, error) {
	return New(ctx, Config{Mode: ModeReal, Port: port}, opts...)
}

// Both creates a Robot driving the arm on port and mirroring to host:udpPort.
func Both(ctx context.Context, port, host string, udpPort int, opts ...Option) (*Robot, error) {
	if err := checkUDPPort(udpPort); err != nil {
		return nil, err
	}
	return New(ctx, Config{Mode: ModeBoth, Port: port, Host: host, UDPPort: udpPort}, opts...)
}

func checkUDPPort(p int) error {
	if p < 1 || p > 65535 {
		return &InvalidConfigError{Reason: fmt.Sprintf("udp port %d must be in range 1..65535", p)}
	}
	return nil
}

// Run creates a Robot, calls fn and closes the Robot on every exit path,
// including a panic in fn. A close error is returned only when fn succeeded.
func Run(ctx context.Context, cfg Config, fn func(r *Robot) error, opts ...Option) (err error) {
	r, err := New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(r)
}

// Config returns the effective configuration.
func (r *Robot) Config() Config {
	return r.cfg
}

// Mode returns the operating mode.
func (r *Robot) Mode() Mode {
	return r.ctrl.Mode()
}

// MoveJoints moves to the given joint angles in degrees without waiting for
// the arm to arrive. Angles and speed are clamped to their legal ranges.
func (r *Robot) MoveJoints(ctx context.Context, j1, j2, j3, j4 float64, speed int) error {
	return r.ctrl.MoveJoints(ctx, j1, j2, j3, j4, speed)
}

// SyncMoveJoints is MoveJoints, but blocks until the arm arrives.
func (r *Robot) SyncMoveJoints(ctx context.Context, j1, j2, j3, j4 float64, speed int) error {
	return r.ctrl.SyncMoveJoints(ctx, j1, j2, j3, j4, speed)
}

// SetColor sets the LED color; channels are clamped to 0..255.
func (r *Robot) SetColor(ctx context.Context, red, green, blue int) error {
	return r.ctrl.SetColor(ctx, red, green, blue)
}

// Pause waits for the given number of seconds.
func (r *Robot) Pause(ctx context.Context, seconds float64) error {
	return r.ctrl.Pause(ctx, seconds)
}

// Close releases the arm and the simulator socket. It is safe to call more
// than once.
func (r *Robot) Close() error {
	return r.ctrl.Close()
}
