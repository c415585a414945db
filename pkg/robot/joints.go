// Package robot provides the joint model, pose presets and actuators for a
// five joint manipulator arm.
package robot

import "fmt"

// JointID identifies a joint in the arm, numbered from the base (1) to the
// gripper wrist (5).
type JointID int

// Joints of the arm.
const (
	Joint1 JointID = iota + 1 // base rotation
	Joint2                    // shoulder
	Joint3                    // elbow
	Joint4                    // wrist pitch
	Joint5                    // wrist roll
)

// NumJoints is the number of joints in the arm.
const NumJoints = 5

// linkLengths holds the segment length in metres following each joint.
var linkLengths = [NumJoints]float64{0.253, 0.155, 0.135, 0.081, 0.105}

// AllJoints returns all joints in order (matching servo IDs 1-5).
func AllJoints() []JointID {
	return []JointID{Joint1, Joint2, Joint3, Joint4, Joint5}
}

// Valid reports whether j names one of the five joints.
func (j JointID) Valid() bool {
	return j >= Joint1 && j <= Joint5
}

// String returns the device name of the joint, e.g. "arm1".
func (j JointID) String() string {
	return fmt.Sprintf("arm%d", int(j))
}

// ParseJoint converts a device name ("arm3") into a JointID.
func ParseJoint(name string) (JointID, error) {
	for _, j := range AllJoints() {
		if j.String() == name {
			return j, nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// LinkLength returns the length in metres of the link driven by joint j.
// Unknown joints have length 0.
func LinkLength(j JointID) float64 {
	if !j.Valid() {
		return 0.0
	}
	return linkLengths[j-1]
}
