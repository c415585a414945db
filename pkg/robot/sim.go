package robot

import (
	"context"
	"fmt"
	"sync"
)

// Command is one call received by a SimArm.
type Command struct {
	Joint    JointID
	Velocity bool // SetVelocity rather than SetPosition
	Value    float64
}

// SimArm is an in-memory actuator. It applies every command instantly and
// keeps a log of what it received.
type SimArm struct {
	mu       sync.Mutex
	angles   [NumJoints]float64
	velocity [NumJoints]float64
	commands []Command
}

// NewSimArm returns a simulated arm with all joints at 0 rad.
func NewSimArm() *SimArm {
	return &SimArm{}
}

func (s *SimArm) SetPosition(ctx context.Context, j JointID, radians float64) error {
	if !j.Valid() {
		return fmt.Errorf("set position: unknown joint %s", j)
	}
	if err := checkAngle(j, radians); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angles[j-1] = radians
	s.commands = append(s.commands, Command{Joint: j, Value: radians})
	return nil
}

func (s *SimArm) SetVelocity(ctx context.Context, j JointID, radiansPerSecond float64) error {
	if !j.Valid() {
		return fmt.Errorf("set velocity: unknown joint %s", j)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.velocity[j-1] = radiansPerSecond
	s.commands = append(s.commands, Command{Joint: j, Velocity: true, Value: radiansPerSecond})
	return nil
}

// Angle returns the last commanded angle of joint j.
func (s *SimArm) Angle(j JointID) float64 {
	if !j.Valid() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angles[j-1]
}

// Velocity returns the last commanded velocity of joint j.
func (s *SimArm) Velocity(j JointID) float64 {
	if !j.Valid() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.velocity[j-1]
}

// Commands returns a copy of every command received so far.
func (s *SimArm) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.commands...)
}

// ClearCommands empties the command log without touching joint state.
func (s *SimArm) ClearCommands() {
	s.mu.Lock()
	s.commands = nil
	s.mu.Unlock()
}
