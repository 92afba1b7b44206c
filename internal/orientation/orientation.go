// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/headmotion/internal/motion"
)

// Pose is the canonical representation of head orientation, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

const (
	rad2deg = 180.0 / math.Pi
	deg2rad = math.Pi / 180.0
)

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is set to 0; there is no heading reference without a magnetometer.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * rad2deg,
		Pitch: pitchRad * rad2deg,
		Yaw:   0,
	}
}

// PoseFromRotation extracts ZYX Euler angles from an attitude matrix.
func PoseFromRotation(r motion.RotationMatrix) Pose {
	sinPitch := math.Max(-1, math.Min(1, -r[2][0]))
	return Pose{
		Roll:  math.Atan2(r[2][1], r[2][2]) * rad2deg,
		Pitch: math.Asin(sinPitch) * rad2deg,
		Yaw:   math.Atan2(r[1][0], r[0][0]) * rad2deg,
	}
}

// RotationFromPose builds the attitude matrix R = Rz(yaw)·Ry(pitch)·Rx(roll).
func RotationFromPose(p Pose) motion.RotationMatrix {
	sr, cr := math.Sincos(p.Roll * deg2rad)
	sp, cp := math.Sincos(p.Pitch * deg2rad)
	sy, cy := math.Sincos(p.Yaw * deg2rad)

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cr, -sr,
		0, sr, cr,
	})
	ry := mat.NewDense(3, 3, []float64{
		cp, 0, sp,
		0, 1, 0,
		-sp, 0, cp,
	})
	rz := mat.NewDense(3, 3, []float64{
		cy, -sy, 0,
		sy, cy, 0,
		0, 0, 1,
	})

	var zy, zyx mat.Dense
	zy.Mul(rz, ry)
	zyx.Mul(&zy, rx)
	return fromDense(&zyx)
}

func toDense(r motion.RotationMatrix) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	})
}

func fromDense(m mat.Matrix) motion.RotationMatrix {
	var r motion.RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m.At(i, j)
		}
	}
	return r
}

// wrapDegrees maps an angle into (-180, 180].
func wrapDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}
