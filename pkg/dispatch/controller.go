// Package dispatch fans validated arm commands out to the hardware and the
// simulator according to the operating mode.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/palletizer/pkg/protocol"
	"github.com/gwillem/palletizer/pkg/robot"
	"github.com/gwillem/palletizer/pkg/sim"
)

// HardwareSink drives the physical arm. Values arrive already clamped.
type HardwareSink interface {
	SendAngles(ctx context.Context, angles robot.Angles, speed int) error
	SendAnglesSync(ctx context.Context, angles robot.Angles, speed int) error
	SetColor(ctx context.Context, c robot.Color) error
	Close() error
}

// NetworkSink mirrors commands to the simulator.
type NetworkSink interface {
	Send(m protocol.Message) error
	Close() error
}

// Dialer opens the backends. Zero fields use the serial arm and UDP sender.
type Dialer struct {
	Hardware func(ctx context.Context, cfg robot.ConnectionConfig, log *logrus.Logger) (HardwareSink, error)
	Network  func(cfg robot.ConnectionConfig, log *logrus.Logger) (NetworkSink, error)
}

// ClosedControllerError is returned by every operation after Close.
type ClosedControllerError struct {
	Op string
}

func (e *ClosedControllerError) Error() string {
	return fmt.Sprintf("%s: controller is closed", e.Op)
}

// Config holds configuration for the controller.
type Config struct {
	Connection robot.ConnectionConfig
	Limits     robot.Limits // defaults to robot.DefaultLimits(); copied
	Logger     *logrus.Logger
	Dialer     Dialer
}

// Controller validates commands and dispatches them to the active backends.
// For every command the simulator is addressed before the hardware, so the
// simulation consistently leads the arm.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	mode     robot.Mode
	limits   robot.Limits
	hardware HardwareSink
	network  NetworkSink
	log      *logrus.Logger
	closed   bool
}

// NewController opens the backends required by the mode. If the hardware
// cannot be reached the controller is not created, also in ModeBoth.
func NewController(ctx context.Context, cfg Config) (*Controller, error) {
	mode := cfg.Connection.Mode
	if !mode.Valid() {
		return nil, &robot.InvalidConfigError{Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	limits := cfg.Limits.Clone()
	if cfg.Limits == nil {
		limits = robot.DefaultLimits()
	}
	if err := limits.Validate(); err != nil {
		return nil, &robot.InvalidConfigError{Reason: err.Error()}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	dialHardware := cfg.Dialer.Hardware
	if dialHardware == nil {
		dialHardware = DialArm
	}
	dialNetwork := cfg.Dialer.Network
	if dialNetwork == nil {
		dialNetwork = DialSimulator
	}

	c := &Controller{mode: mode, limits: limits, log: log}

	if mode.UsesHardware() {
		hw, err := dialHardware(ctx, cfg.Connection, log)
		if err != nil {
			return nil, err
		}
		c.hardware = hw
	}

	if mode.UsesSimulation() {
		ns, err := dialNetwork(cfg.Connection, log)
		if err != nil {
			if c.hardware != nil {
				c.hardware.Close()
			}
			return nil, fmt.Errorf("open simulation output: %w", err)
		}
		c.network = ns
	}

	log.WithField("mode", mode).Info("controller started")
	return c, nil
}

// DialArm connects to the arm over the configured serial port.
func DialArm(ctx context.Context, cfg robot.ConnectionConfig, log *logrus.Logger) (HardwareSink, error) {
	opts := cfg.ArmOptions()
	opts.Logger = log
	arm, err := robot.NewArm(ctx, opts)
	if err != nil {
		return nil, err
	}
	return arm, nil
}

// DialSimulator opens the UDP output to the configured simulator address.
func DialSimulator(cfg robot.ConnectionConfig, log *logrus.Logger) (NetworkSink, error) {
	s, err := sim.Dial(cfg.Address(), log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Mode returns the operating mode.
func (c *Controller) Mode() robot.Mode {
	return c.mode
}

// MoveJoints clamps the targets and starts the move without waiting for the
// arm to arrive.
func (c *Controller) MoveJoints(ctx context.Context, j1, j2, j3, j4 float64, speed int) error {
	if c.closed {
		return &ClosedControllerError{Op: "move joints"}
	}
	angles, speed, err := c.clampMove(j1, j2, j3, j4, speed)
	if err != nil {
		return err
	}
	c.log.WithFields(moveFields(angles, speed)).Debug("move joints")

	var errs []error
	if c.network != nil {
		if err := c.network.Send(protocol.Move{Joints: joints(angles, speed)}); err != nil {
			errs = append(errs, err)
		}
	}
	if c.hardware != nil {
		if err := c.hardware.SendAngles(ctx, angles, speed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncMoveJoints clamps the targets, moves and, when hardware is active,
// blocks until the arm reports arrival. Cancel ctx to stop waiting; the
// motion itself is not rescinded.
func (c *Controller) SyncMoveJoints(ctx context.Context, j1, j2, j3, j4 float64, speed int) error {
	if c.closed {
		return &ClosedControllerError{Op: "sync move joints"}
	}
	angles, speed, err := c.clampMove(j1, j2, j3, j4, speed)
	if err != nil {
		return err
	}
	c.log.WithFields(moveFields(angles, speed)).Debug("sync move joints")

	var errs []error
	if c.network != nil {
		if err := c.network.Send(protocol.SyncMove{Joints: joints(angles, speed)}); err != nil {
			errs = append(errs, err)
		}
	}
	if c.hardware != nil {
		if err := c.hardware.SendAnglesSync(ctx, angles, speed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetColor clamps each channel to 0..255 and sets the LED color.
func (c *Controller) SetColor(ctx context.Context, r, g, b int) error {
	if c.closed {
		return &ClosedControllerError{Op: "set color"}
	}
	color := robot.ClampColor(r, g, b)
	c.log.WithFields(logrus.Fields{"r": color.R, "g": color.G, "b": color.B}).Debug("set color")

	var errs []error
	if c.network != nil {
		if err := c.network.Send(protocol.LED{R: color.R, G: color.G, B: color.B}); err != nil {
			errs = append(errs, err)
		}
	}
	if c.hardware != nil {
		if err := c.hardware.SetColor(ctx, color); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pause blocks for the given number of seconds. Negative values do not wait.
func (c *Controller) Pause(ctx context.Context, seconds float64) error {
	if c.closed {
		return &ClosedControllerError{Op: "pause"}
	}
	if math.IsNaN(seconds) || seconds <= 0 {
		return ctx.Err()
	}
	// Durations past the int64 range only end with ctx.
	if seconds*float64(time.Second) >= math.MaxInt64 {
		<-ctx.Done()
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases the backends in reverse order of opening. It is idempotent;
// only the first call can return an error.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.network != nil {
		if err := c.network.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close simulation output: %w", err))
		}
		c.network = nil
	}
	if c.hardware != nil {
		if err := c.hardware.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close arm: %w", err))
		}
		c.hardware = nil
	}
	c.log.Info("controller released")
	return errors.Join(errs...)
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	return c.closed
}

func (c *Controller) clampMove(j1, j2, j3, j4 float64, speed int) (robot.Angles, int, error) {
	angles, err := c.limits.ClampAngles(robot.Angles{j1, j2, j3, j4})
	if err != nil {
		return robot.Angles{}, 0, err
	}
	return angles, robot.ClampSpeed(speed), nil
}

func joints(a robot.Angles, speed int) protocol.Joints {
	return protocol.Joints{J1: a[0], J2: a[1], J3: a[2], J4: a[3], Speed: speed}
}

func moveFields(a robot.Angles, speed int) logrus.Fields {
	return logrus.Fields{"j1": a[0], "j2": a[1], "j3": a[2], "j4": a[3], "speed": speed}
}
