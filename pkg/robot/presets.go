package robot

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPreset is returned when a height or orientation index falls
// outside its preset table.
var ErrInvalidPreset = errors.New("invalid preset")

// HeightPreset is a named configuration of joints 2-5.
type HeightPreset int

// Height presets, ordered from lowest in front of the robot to its back.
const (
	FrontFloor HeightPreset = iota
	FrontPlate
	HanoiPrepare
	FrontCardboardBox
	HeightReset
	BackPlateHigh
	BackPlateLow
	MaxHeight // exclusive upper bound
)

// OrientationPreset is a named angle of the base joint.
type OrientationPreset int

// Orientation presets, ordered from back-left to back-right.
const (
	BackLeft OrientationPreset = iota
	Left
	FrontLeft
	Front
	FrontRight
	Right
	BackRight
	MaxSide // exclusive upper bound
)

// HeightAngles are the target angles of joints 2-5, in radians.
type HeightAngles [4]float64

var heightTable = [MaxHeight]HeightAngles{
	FrontFloor:        {-0.97, -1.55, -0.61, 0.0},
	FrontPlate:        {-0.62, -0.98, -1.53, 0.0},
	HanoiPrepare:      {-0.4, -1.2, -math.Pi / 2, math.Pi / 2},
	FrontCardboardBox: {0.0, -0.77, -1.21, 0.0},
	HeightReset:       {1.57, -2.635, 1.78, 0.0},
	BackPlateHigh:     {0.678, 0.682, 1.74, 0.0},
	BackPlateLow:      {0.92, 0.42, 1.78, 0.0},
}

var orientationTable = [MaxSide]float64{
	BackLeft:   -2.949,
	Left:       -math.Pi / 2,
	FrontLeft:  -0.2,
	Front:      0.0,
	FrontRight: 0.2,
	Right:      math.Pi / 2,
	BackRight:  2.949,
}

var heightNames = [MaxHeight]string{
	"front_floor", "front_plate", "hanoi_prepare", "front_cardboard_box",
	"reset", "back_plate_high", "back_plate_low",
}

var orientationNames = [MaxSide]string{
	"back_left", "left", "front_left", "front", "front_right", "right", "back_right",
}

// Valid reports whether h indexes the height table.
func (h HeightPreset) Valid() bool {
	return h >= 0 && h < MaxHeight
}

// Angles returns the joint 2-5 angles for h.
func (h HeightPreset) Angles() (HeightAngles, error) {
	if !h.Valid() {
		return HeightAngles{}, fmt.Errorf("%w: height %d", ErrInvalidPreset, int(h))
	}
	return heightTable[h], nil
}

func (h HeightPreset) String() string {
	if !h.Valid() {
		return fmt.Sprintf("HeightPreset(%d)", int(h))
	}
	return heightNames[h]
}

// Valid reports whether o indexes the orientation table.
func (o OrientationPreset) Valid() bool {
	return o >= 0 && o < MaxSide
}

// Angle returns the joint 1 angle for o.
func (o OrientationPreset) Angle() (float64, error) {
	if !o.Valid() {
		return 0, fmt.Errorf("%w: orientation %d", ErrInvalidPreset, int(o))
	}
	return orientationTable[o], nil
}

func (o OrientationPreset) String() string {
	if !o.Valid() {
		return fmt.Sprintf("OrientationPreset(%d)", int(o))
	}
	return orientationNames[o]
}

// ParseHeight looks up a height preset by name, e.g. "front_plate".
func ParseHeight(name string) (HeightPreset, error) {
	for i, n := range heightNames {
		if n == name {
			return HeightPreset(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown height %q", ErrInvalidPreset, name)
}

// ParseOrientation looks up an orientation preset by name, e.g. "front_left".
func ParseOrientation(name string) (OrientationPreset, error) {
	for i, n := range orientationNames {
		if n == name {
			return OrientationPreset(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown orientation %q", ErrInvalidPreset, name)
}
