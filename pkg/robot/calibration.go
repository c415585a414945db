package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const (
	// StepsPerRevolution is the encoder resolution of an STS series servo.
	StepsPerRevolution = 4096
	// CenterPosition is the raw position of a servo at its mechanical centre.
	CenterPosition = 2048
)

// JointCalibration maps the angle of one joint onto raw servo positions.
type JointCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`    // 1 inverts the direction of rotation
	HomingOffset int `json:"homing_offset"` // raw position at 0 rad
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all joints.
type Calibration map[JointID]JointCalibration

// DefaultCalibration returns a calibration for servos with IDs 1-5 that are
// assembled so the joint zero matches the servo centre.
func DefaultCalibration() Calibration {
	cal := make(Calibration, NumJoints)
	for _, j := range AllJoints() {
		cal[j] = JointCalibration{
			ID:           int(j),
			HomingOffset: CenterPosition,
			RangeMin:     0,
			RangeMax:     StepsPerRevolution - 1,
		}
	}
	return cal
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// ToRaw converts a joint angle in radians to a raw servo position, clamped
// to the calibrated range.
func (c JointCalibration) ToRaw(radians float64) int {
	steps := radians * StepsPerRevolution / (2 * math.Pi)
	if c.DriveMode == 1 {
		steps = -steps
	}
	raw := float64(c.HomingOffset) + math.Round(steps)

	// An empty range means the joint was never calibrated; leave it unclamped.
	// Clamp before converting so huge angles saturate instead of overflowing.
	if c.RangeMax > c.RangeMin {
		raw = min(max(raw, float64(c.RangeMin)), float64(c.RangeMax))
	}
	return int(raw)
}

// ToRadians converts a raw servo position to a joint angle in radians.
func (c JointCalibration) ToRadians(raw int) float64 {
	steps := float64(raw - c.HomingOffset)
	if c.DriveMode == 1 {
		steps = -steps
	}
	return steps * 2 * math.Pi / StepsPerRevolution
}

// MotorIDs returns the servo IDs for all joints in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllJoints() to ensure consistent ordering
	for _, j := range AllJoints() {
		if jc, ok := c[j]; ok {
			ids = append(ids, jc.ID)
		}
	}
	return ids
}

// ByID returns the joint and calibration for a given servo ID.
func (c Calibration) ByID(id int) (JointID, JointCalibration, bool) {
	for j, jc := range c {
		if jc.ID == id {
			return j, jc, true
		}
	}
	return 0, JointCalibration{}, false
}

// MarshalText encodes the joint by its device name, so calibration files
// are keyed "arm1".."arm5".
func (j JointID) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("unknown joint %d", int(j))
	}
	return []byte(j.String()), nil
}

// UnmarshalText decodes a device name such as "arm1".
func (j *JointID) UnmarshalText(text []byte) error {
	parsed, err := ParseJoint(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}
