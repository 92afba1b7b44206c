// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/imu"
	"github.com/relabs-tech/headmotion/internal/motion"
)

// Open builds the source selected by MOTION_SOURCE. Sources that hold a
// device also implement io.Closer.
func Open(cfg *config.Config) (motion.Source, error) {
	switch cfg.MotionSource {
	case config.SourceMock:
		return NewMockSource(), nil
	case config.SourceIMU:
		scale, err := imu.NewScale(cfg.IMUAccelRange, cfg.IMUGyroRange)
		if err != nil {
			return nil, err
		}
		return NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, scale, cfg.FilterAlpha)
	case config.SourceSerial:
		return NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate, cfg.FilterAlpha)
	default:
		return nil, fmt.Errorf("unknown motion source %q", cfg.MotionSource)
	}
}

// Paced reports whether the source sets its own rate. Paced sources are
// read in a loop; the others are polled on SAMPLE_INTERVAL.
func Paced(cfg *config.Config) bool {
	return cfg.MotionSource == config.SourceSerial
}
