// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "github.com/relabs-tech/headmotion/internal/motion"

// ComplementaryFilter fuses gyro integration with accelerometer tilt.
// Body rates are integrated directly as Euler rates, which holds for the
// small per-tick rotations of a head-worn sensor. Yaw is gyro-only and drifts.
type ComplementaryFilter struct {
	// Alpha is the weight given to the integrated gyro estimate (0..1).
	Alpha float64

	pose        Pose
	initialized bool
}

func NewComplementaryFilter(alpha float64) *ComplementaryFilter {
	return &ComplementaryFilter{Alpha: alpha}
}

// Update advances the estimate. accel is in g, gyro in rad/s, dt in seconds.
func (f *ComplementaryFilter) Update(accel, gyro motion.Vec3, dt float64) Pose {
	tilt := ComputePoseFromAccel(accel.X, accel.Y, accel.Z)

	if !f.initialized || dt <= 0 {
		if !f.initialized {
			f.pose = tilt
			f.initialized = true
		}
		return f.pose
	}

	a := f.Alpha
	f.pose = Pose{
		Roll:  a*(f.pose.Roll+gyro.X*rad2deg*dt) + (1-a)*tilt.Roll,
		Pitch: a*(f.pose.Pitch+gyro.Y*rad2deg*dt) + (1-a)*tilt.Pitch,
		Yaw:   wrapDegrees(f.pose.Yaw + gyro.Z*rad2deg*dt),
	}
	return f.pose
}

// Pose returns the current estimate.
func (f *ComplementaryFilter) Pose() Pose {
	return f.pose
}
