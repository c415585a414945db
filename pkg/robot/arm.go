package robot

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm drives the five joints through Feetech STS servos on a serial bus.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	servos      map[JointID]*feetech.Servo
	calibration Calibration

	mu       sync.Mutex
	velocity map[JointID]float64 // rad/s, 0 means servo default speed
}

// NewArm opens the bus on cfg.Port and binds one servo per calibrated joint.
func NewArm(ctx context.Context, cfg Config) (*Arm, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	cal := cfg.Calibration
	if len(cal) == 0 {
		cal = DefaultCalibration()
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	ids := cal.MotorIDs()
	if len(ids) == 0 {
		bus.Close()
		return nil, fmt.Errorf("calibration has no joints")
	}
	found, err := bus.Scan(scanCtx, slices.Min(ids), slices.Max(ids))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan bus: %w", err)
	}

	servos := make(map[JointID]*feetech.Servo, NumJoints)
	for _, s := range found {
		j, _, ok := cal.ByID(s.ID)
		if !ok {
			continue
		}
		servos[j] = feetech.NewServo(bus, s.ID, s.Model)
	}
	for _, j := range AllJoints() {
		if _, ok := servos[j]; !ok {
			bus.Close()
			return nil, fmt.Errorf("servo for %s (id %d) not found on %s", j, cal[j].ID, cfg.Port)
		}
	}

	return &Arm{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, ids...),
		servos:      servos,
		calibration: cal,
		velocity:    make(map[JointID]float64, NumJoints),
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// SetVelocity sets the speed used by subsequent SetPosition calls on j.
func (a *Arm) SetVelocity(ctx context.Context, j JointID, radiansPerSecond float64) error {
	if _, ok := a.servos[j]; !ok {
		return fmt.Errorf("set velocity: unknown joint %s", j)
	}
	if radiansPerSecond <= 0 || math.IsNaN(radiansPerSecond) {
		return fmt.Errorf("set velocity %s: %v rad/s is not positive", j, radiansPerSecond)
	}

	a.mu.Lock()
	a.velocity[j] = radiansPerSecond
	a.mu.Unlock()
	return nil
}

// SetPosition commands joint j toward an angle in radians. When a velocity
// is set for j, the move time is derived from the distance to travel.
func (a *Arm) SetPosition(ctx context.Context, j JointID, radians float64) error {
	servo, ok := a.servos[j]
	if !ok {
		return fmt.Errorf("set position: unknown joint %s", j)
	}
	if err := checkAngle(j, radians); err != nil {
		return err
	}
	cal := a.calibration[j]
	target := cal.ToRaw(radians)

	a.mu.Lock()
	vel := a.velocity[j]
	a.mu.Unlock()

	if vel == 0 {
		if err := servo.SetPosition(ctx, target); err != nil {
			return fmt.Errorf("set position %s: %w", j, err)
		}
		return nil
	}

	current, err := servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position %s: %w", j, err)
	}
	distance := math.Abs(cal.ToRadians(target) - cal.ToRadians(current))
	moveTimeMs := int(math.Round(distance / vel * 1000))

	if err := servo.SetPositionWithTime(ctx, target, moveTimeMs); err != nil {
		return fmt.Errorf("set position %s: %w", j, err)
	}
	return nil
}

// ReadAngles reads the present angle of every joint, in radians.
func (a *Arm) ReadAngles(ctx context.Context) (map[JointID]float64, error) {
	// Read raw positions using sync read
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make(map[JointID]float64, len(rawPositions))
	for id, raw := range rawPositions {
		j, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		angles[j] = cal.ToRadians(raw)
	}
	return angles, nil
}
