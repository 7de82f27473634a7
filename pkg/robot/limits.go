package robot

import (
	"fmt"
	"math"
)

// Speed and color channel bounds.
const (
	MinSpeed     = 1
	MaxSpeed     = 100
	DefaultSpeed = 40

	MinColorChannel = 0
	MaxColorChannel = 255
)

// Range is an inclusive angle range in degrees.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Clamp saturates angle into [Min, Max]. NaN saturates to Min.
func (r Range) Clamp(angle float64) float64 {
	if math.IsNaN(angle) || angle < r.Min {
		return r.Min
	}
	if angle > r.Max {
		return r.Max
	}
	return angle
}

// Limits maps each joint to its legal angle range.
type Limits map[Joint]Range

// defaultLimits are the joint limits deployed Palletizer setups rely on.
// They must not change.
var defaultLimits = Limits{
	J1: {Min: -160, Max: 160},
	J2: {Min: 0, Max: 90},
	J3: {Min: -60, Max: 0},
	J4: {Min: -360, Max: 360},
}

// DefaultLimits returns a copy of the standard joint limits.
func DefaultLimits() Limits {
	return defaultLimits.Clone()
}

// Clone returns a copy of l.
func (l Limits) Clone() Limits {
	c := make(Limits, len(l))
	for j, r := range l {
		c[j] = r
	}
	return c
}

// Validate checks that every joint has a range and that min <= max.
func (l Limits) Validate() error {
	for _, j := range AllJoints() {
		r, ok := l[j]
		if !ok {
			return fmt.Errorf("missing limits for joint %s", j)
		}
		if r.Min > r.Max {
			return fmt.Errorf("joint %s: min %v greater than max %v", j, r.Min, r.Max)
		}
	}
	return nil
}

// Clamp returns angle clamped into the range for joint.
func (l Limits) Clamp(joint Joint, angle float64) (float64, error) {
	r, ok := l[joint]
	if !ok {
		return 0, &UnknownJointError{Joint: joint}
	}
	return r.Clamp(angle), nil
}

// ClampAngles clamps all four angles against their joint ranges.
func (l Limits) ClampAngles(a Angles) (Angles, error) {
	var out Angles
	for i, j := range AllJoints() {
		v, err := l.Clamp(j, a[i])
		if err != nil {
			return Angles{}, err
		}
		out[i] = v
	}
	return out, nil
}

// ClampJointAngle clamps angle into the default range for joint.
// Out-of-range input saturates; only an unknown joint is an error.
func ClampJointAngle(joint Joint, angle float64) (float64, error) {
	return defaultLimits.Clamp(joint, angle)
}

// ClampSpeed clamps speed into [MinSpeed, MaxSpeed].
func ClampSpeed(speed int) int {
	return clampInt(speed, MinSpeed, MaxSpeed)
}

// ClampColorChannel clamps a single color channel into [0, 255].
func ClampColorChannel(v int) uint8 {
	return uint8(clampInt(v, MinColorChannel, MaxColorChannel))
}

// ClampColor clamps r, g and b independently.
func ClampColor(r, g, b int) Color {
	return Color{
		R: ClampColorChannel(r),
		G: ClampColorChannel(g),
		B: ClampColorChannel(b),
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
