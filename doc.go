// Package webotsarm provides a positional controller for a five joint
// manipulator arm, such as the one mounted on a KUKA youBot.
//
// The arm is driven either through named pose presets (seven heights and
// seven base orientations, stepped up and down with saturation) or through
// a closed-form inverse-kinematics solver that places the gripper tip at a
// Cartesian point.
//
// # Installation
//
//	go install github.com/connorklee/webots-arm/cmd/armctl@latest
//
// # Usage
//
// First, run setup to find and calibrate the arm:
//
//	armctl setup
//
// Then move it:
//
//	armctl pose --height front_plate --orientation front_left
//	armctl reach 0.2 0.0 0.05
//	armctl drive
//
// Every command accepts --sim to run against an in-memory arm.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armctl: CLI with setup, pose, reach, joint, reset, info and drive commands
//   - pkg/robot: joints, link lengths, pose presets, calibration, configuration and actuators
//   - pkg/kinematics: inverse and forward kinematics
//   - pkg/control: preset state machine and arm controller
package webotsarm
