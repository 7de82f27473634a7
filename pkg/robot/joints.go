// Package robot provides the Palletizer arm: joint limits, range clamping,
// connection configuration and the serial hardware connection.
package robot

// Joint identifies a rotational joint of the arm.
type Joint string

// Joint names for the 4-axis Palletizer.
const (
	J1 Joint = "j1"
	J2 Joint = "j2"
	J3 Joint = "j3"
	J4 Joint = "j4"
)

// NumJoints is the number of joints on the arm.
const NumJoints = 4

// AllJoints returns all joint names in order (matching the order angles are
// sent to the controller board).
func AllJoints() []Joint {
	return []Joint{J1, J2, J3, J4}
}

// Angles holds one angle per joint, in degrees, in AllJoints order.
type Angles [NumJoints]float64

// Color is an LED color with 8-bit channels.
type Color struct {
	R, G, B uint8
}
