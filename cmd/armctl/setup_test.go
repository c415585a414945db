package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/connorklee/webots-arm/pkg/robot"
)

// fakeServo records moves and fails on demand.
type fakeServo struct {
	moves       []int
	disabled    bool
	failMove    int // fail the move to this position, 0 for never
	failDisable bool
}

func (f *fakeServo) SetPositionWithTime(ctx context.Context, position, timeMs int) error {
	if position == f.failMove {
		return errors.New("no status packet")
	}
	f.moves = append(f.moves, position)
	return nil
}

func (f *fakeServo) Disable(ctx context.Context) error {
	if f.failDisable {
		return errors.New("torque write failed")
	}
	f.disabled = true
	return nil
}

func TestWiggle(t *testing.T) {
	servo := &fakeServo{}
	if err := wiggle(context.Background(), servo, 2048, 30, time.Millisecond); err != nil {
		t.Fatalf("wiggle: %v", err)
	}
	want := []int{2078, 2018, 2048}
	if len(servo.moves) != len(want) {
		t.Fatalf("moves = %v, want %v", servo.moves, want)
	}
	for i := range want {
		if servo.moves[i] != want[i] {
			t.Errorf("move %d = %d, want %d", i, servo.moves[i], want[i])
		}
	}
	if !servo.disabled {
		t.Error("torque left enabled after wiggle")
	}
}

func TestWiggle_Errors(t *testing.T) {
	tests := []struct {
		name      string
		servo     *fakeServo
		wantMoves int
		wantErrs  int
	}{
		{"move fails", &fakeServo{failMove: 2018}, 1, 1},
		{"disable fails", &fakeServo{failDisable: true}, 3, 1},
		{"both fail", &fakeServo{failMove: 2078, failDisable: true}, 0, 2},
	}

	for _, tt := range tests {
		err := wiggle(context.Background(), tt.servo, 2048, 30, time.Millisecond)
		if err == nil {
			t.Errorf("%s: wiggle returned nil", tt.name)
			continue
		}
		if n := len(multierr.Errors(err)); n != tt.wantErrs {
			t.Errorf("%s: got %d errors, want %d: %v", tt.name, n, tt.wantErrs, err)
		}
		if n := len(tt.servo.moves); n != tt.wantMoves {
			t.Errorf("%s: got %d moves, want %d", tt.name, n, tt.wantMoves)
		}
		if !tt.servo.failDisable && !tt.servo.disabled {
			t.Errorf("%s: torque left enabled after a failed move", tt.name)
		}
	}
}

func TestReleaseTorque(t *testing.T) {
	servos := map[robot.JointID]*fakeServo{
		robot.Joint1: {},
		robot.Joint2: {failDisable: true},
		robot.Joint3: {},
		robot.Joint4: {failDisable: true},
		robot.Joint5: {},
	}

	err := releaseTorque(context.Background(), servos)
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("got %d errors, want 2: %v", n, err)
	}
	for j, s := range servos {
		if !s.failDisable && !s.disabled {
			t.Errorf("%s still holding torque", j)
		}
	}

	if err := releaseTorque(context.Background(), map[robot.JointID]*fakeServo{robot.Joint1: {}}); err != nil {
		t.Errorf("releaseTorque: %v", err)
	}
}
