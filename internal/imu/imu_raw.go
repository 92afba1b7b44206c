// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"

	"github.com/relabs-tech/headmotion/internal/motion"
)

// IMURaw represents a single raw accel+gyro sample in sensor counts.
type IMURaw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

type IMURawReader interface {
	ReadRaw() (IMURaw, error)
}

// Full-scale sensitivities of the MPU-9250, indexed by the range register value.
var (
	accelLSBPerG  = [4]float64{16384, 8192, 4096, 2048}
	gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}
	accelRangeG   = [4]int{2, 4, 8, 16}
	gyroRangeDPS  = [4]int{250, 500, 1000, 2000}
)

// Scale converts raw counts into physical units for one range configuration.
type Scale struct {
	AccelRange byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	GyroRange  byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
}

// NewScale validates the range codes.
func NewScale(accelRange, gyroRange byte) (Scale, error) {
	if accelRange > 3 {
		return Scale{}, fmt.Errorf("accel range must be 0-3, got %d", accelRange)
	}
	if gyroRange > 3 {
		return Scale{}, fmt.Errorf("gyro range must be 0-3, got %d", gyroRange)
	}
	return Scale{AccelRange: accelRange, GyroRange: gyroRange}, nil
}

// Accel returns the acceleration in g.
func (s Scale) Accel(r IMURaw) motion.Vec3 {
	lsb := accelLSBPerG[s.AccelRange]
	return motion.Vec3{
		X: float64(r.Ax) / lsb,
		Y: float64(r.Ay) / lsb,
		Z: float64(r.Az) / lsb,
	}
}

// Gyro returns the rotation rate in rad/s.
func (s Scale) Gyro(r IMURaw) motion.Vec3 {
	k := math.Pi / 180 / gyroLSBPerDPS[s.GyroRange]
	return motion.Vec3{
		X: float64(r.Gx) * k,
		Y: float64(r.Gy) * k,
		Z: float64(r.Gz) * k,
	}
}

func (s Scale) String() string {
	return fmt.Sprintf("±%dg / ±%d°/s", accelRangeG[s.AccelRange], gyroRangeDPS[s.GyroRange])
}
