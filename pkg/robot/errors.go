package robot

import "fmt"

// InvalidConfigError reports a configuration that violates a static invariant.
// It is returned before any connection is attempted.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid config: " + e.Reason
}

// RobotConnectionError reports that the serial connection to the arm could not
// be opened or did not answer the handshake.
type RobotConnectionError struct {
	Port string
	Err  error
}

func (e *RobotConnectionError) Error() string {
	return fmt.Sprintf("could not connect to robot on port %s: %v", e.Port, e.Err)
}

func (e *RobotConnectionError) Unwrap() error {
	return e.Err
}

// UnknownJointError reports a joint identifier outside j1..j4.
type UnknownJointError struct {
	Joint Joint
}

func (e *UnknownJointError) Error() string {
	return fmt.Sprintf("unknown joint %q", string(e.Joint))
}
