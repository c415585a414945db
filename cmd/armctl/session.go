package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/connorklee/webots-arm/pkg/control"
	"github.com/connorklee/webots-arm/pkg/robot"
)

// session bundles a controller with the actuator behind it.
type session struct {
	ctrl   *control.Controller
	arm    *robot.Arm // nil when simulated
	sim    *robot.SimArm
	logger *zap.Logger
}

// newLogger builds a console logger, or a file logger when path is set so
// log lines stay out of a full-screen UI.
func newLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	return cfg.Build()
}

func openSession(ctx context.Context, logger *zap.Logger) (*session, error) {
	s := &session{logger: logger}

	var actuator robot.Actuator
	if opts.Sim {
		s.sim = robot.NewSimArm()
		actuator = s.sim
		logger.Info("using simulated arm")
	} else {
		cfg, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return nil, fmt.Errorf("load config (run 'armctl setup' first): %w", err)
		}
		if cfg.Port == "" {
			return nil, errors.New("no port configured, run 'armctl setup' first")
		}
		if !cfg.IsCalibrated() {
			logger.Warn("arm not calibrated, assuming servo centre is joint zero")
		}

		arm, err := robot.NewArm(ctx, *cfg)
		if err != nil {
			return nil, fmt.Errorf("connect arm: %w", err)
		}
		if err := arm.Enable(ctx); err != nil {
			arm.Close()
			return nil, fmt.Errorf("enable torque: %w", err)
		}
		s.arm = arm
		actuator = arm
		logger.Info("connected", zap.String("port", cfg.Port))
	}

	ctrl, err := control.NewController(ctx, actuator, control.Options{
		Logger:        logger,
		StrictPresets: opts.Strict,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create controller: %w", err)
	}
	s.ctrl = ctrl
	return s, nil
}

// Close releases the bus. Torque stays enabled so the arm holds its pose.
func (s *session) Close() error {
	_ = s.logger.Sync()
	if s.arm == nil {
		return nil
	}
	return s.arm.Close()
}
