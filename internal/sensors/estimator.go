// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors turns raw accelerometer and gyroscope readings from the
// supported hardware into motion samples.
package sensors

import (
	"time"

	"github.com/relabs-tech/headmotion/internal/motion"
	"github.com/relabs-tech/headmotion/internal/orientation"
)

// Estimator derives attitude and gravity-free acceleration from raw
// accel (g, gravity included) and gyro (rad/s) readings.
type Estimator struct {
	filter *orientation.ComplementaryFilter
	last   time.Time
}

func NewEstimator(alpha float64) *Estimator {
	return &Estimator{filter: orientation.NewComplementaryFilter(alpha)}
}

// Sample advances the filter to t and builds the motion sample.
func (e *Estimator) Sample(t time.Time, accel, gyro motion.Vec3) motion.Sample {
	var dt float64
	if !e.last.IsZero() {
		dt = t.Sub(e.last).Seconds()
	}
	e.last = t

	att := orientation.RotationFromPose(e.filter.Update(accel, gyro, dt))

	// Gravity in the body frame is the bottom row of the body-to-reference matrix.
	return motion.Sample{
		Time:         t,
		RotationRate: gyro,
		UserAcceleration: motion.Vec3{
			X: accel.X - att[2][0],
			Y: accel.Y - att[2][1],
			Z: accel.Z - att[2][2],
		},
		Attitude: att,
	}
}
