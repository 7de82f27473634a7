package robot

import (
	"errors"
	"math"
	"testing"
)

func TestClampJointAngle(t *testing.T) {
	tests := []struct {
		joint    Joint
		angle    float64
		expected float64
	}{
		{J1, 200, 160},   // above max
		{J1, 50, 50},     // in range -> unchanged
		{J1, -500, -160}, // below min
		{J2, -1, 0},
		{J2, 90, 90}, // boundary
		{J2, 95.5, 90},
		{J3, 10, 0},
		{J3, -61, -60},
		{J3, -30.25, -30.25},
		{J4, 400, 360},
		{J4, -360, -360},
		{J4, 180, 180},
	}

	for _, tt := range tests {
		got, err := ClampJointAngle(tt.joint, tt.angle)
		if err != nil {
			t.Fatalf("ClampJointAngle(%s, %f) error: %v", tt.joint, tt.angle, err)
		}
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("ClampJointAngle(%s, %f) = %f, want %f", tt.joint, tt.angle, got, tt.expected)
		}
	}
}

func TestClampJointAngle_AlwaysInRange(t *testing.T) {
	for _, j := range AllJoints() {
		r := DefaultLimits()[j]
		for angle := -1000.0; angle <= 1000; angle += 7.5 {
			got, err := ClampJointAngle(j, angle)
			if err != nil {
				t.Fatal(err)
			}
			if got < r.Min || got > r.Max {
				t.Errorf("ClampJointAngle(%s, %f) = %f, outside [%f, %f]", j, angle, got, r.Min, r.Max)
			}
			// Idempotent
			again, _ := ClampJointAngle(j, got)
			if again != got {
				t.Errorf("ClampJointAngle(%s, %f) not idempotent: %f -> %f", j, angle, got, again)
			}
		}
	}
}

func TestClampJointAngle_NaN(t *testing.T) {
	got, err := ClampJointAngle(J2, math.NaN())
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("ClampJointAngle(j2, NaN) = %f, want 0", got)
	}
}

func TestClampJointAngle_UnknownJoint(t *testing.T) {
	_, err := ClampJointAngle("j5", 10)
	var uj *UnknownJointError
	if !errors.As(err, &uj) {
		t.Fatalf("expected UnknownJointError, got %v", err)
	}
	if uj.Joint != "j5" {
		t.Errorf("UnknownJointError.Joint = %q, want j5", uj.Joint)
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		speed    int
		expected int
	}{
		{0, 1},
		{-20, 1},
		{1, 1},
		{40, 40},
		{100, 100},
		{120, 100},
		{500, 100},
	}

	for _, tt := range tests {
		if got := ClampSpeed(tt.speed); got != tt.expected {
			t.Errorf("ClampSpeed(%d) = %d, want %d", tt.speed, got, tt.expected)
		}
	}
}

func TestClampColorChannel(t *testing.T) {
	tests := []struct {
		value    int
		expected uint8
	}{
		{-5, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{300, 255},
	}

	for _, tt := range tests {
		if got := ClampColorChannel(tt.value); got != tt.expected {
			t.Errorf("ClampColorChannel(%d) = %d, want %d", tt.value, got, tt.expected)
		}
	}
}

func TestClampColor(t *testing.T) {
	got := ClampColor(-10, 999, 128)
	want := Color{R: 0, G: 255, B: 128}
	if got != want {
		t.Errorf("ClampColor(-10, 999, 128) = %+v, want %+v", got, want)
	}
}

func TestLimits_Validate(t *testing.T) {
	if err := DefaultLimits().Validate(); err != nil {
		t.Fatalf("DefaultLimits invalid: %v", err)
	}

	bad := Limits{
		J1: {Min: 10, Max: -10},
		J2: {Min: 0, Max: 90},
		J3: {Min: -60, Max: 0},
		J4: {Min: -360, Max: 360},
	}
	if err := bad.Validate(); err == nil {
		t.Error("Validate should reject min > max")
	}

	missing := Limits{J1: {Min: -1, Max: 1}}
	if err := missing.Validate(); err == nil {
		t.Error("Validate should reject missing joints")
	}
}

func TestLimits_ClampAngles(t *testing.T) {
	got, err := DefaultLimits().ClampAngles(Angles{-200, 100, 10, 0})
	if err != nil {
		t.Fatal(err)
	}
	want := Angles{-160, 90, 0, 0}
	if got != want {
		t.Errorf("ClampAngles = %v, want %v", got, want)
	}
}

func TestDefaultLimits_ReturnsCopy(t *testing.T) {
	l := DefaultLimits()
	l[J1] = Range{Min: 0, Max: 1}
	delete(l, J2)

	if got := DefaultLimits()[J1]; got != (Range{Min: -160, Max: 160}) {
		t.Errorf("DefaultLimits()[J1] = %+v after caller mutation", got)
	}
	got, err := ClampJointAngle(J1, 100)
	if err != nil || got != 100 {
		t.Errorf("ClampJointAngle(J1, 100) = %v, %v after caller mutation", got, err)
	}
	if _, err := ClampJointAngle(J2, 10); err != nil {
		t.Errorf("ClampJointAngle(J2) failed after caller mutation: %v", err)
	}
}
