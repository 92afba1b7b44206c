// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion holds the sample types shared by motion sources and the
// components that consume them.
package motion

import "time"

// Vec3 is a three-axis reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RotationMatrix is a row-major 3x3 attitude matrix (body to reference).
type RotationMatrix [3][3]float64

// Identity returns the identity attitude.
func Identity() RotationMatrix {
	return RotationMatrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Sample is one motion update from a head-worn IMU.
type Sample struct {
	Time time.Time `json:"time"`

	RotationRate     Vec3 `json:"rotation_rate"`     // rad/s
	UserAcceleration Vec3 `json:"user_acceleration"` // g, gravity removed

	Attitude RotationMatrix `json:"attitude"`
}

// Source is anything that can provide motion samples over time.
type Source interface {
	Next() (Sample, error)
}
