// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/headmotion/internal/motion"
	"github.com/relabs-tech/headmotion/internal/orientation"
)

// Mock gestures cycle through these phases, mockPhaseLength seconds each.
const (
	PhaseStill   = "still"
	PhaseNodding = "nodding"
	PhaseShaking = "shaking"

	mockPhaseLength = 6.0
	mockGestureHz   = 1.5
	mockNodDeg      = 15.0
	mockShakeDeg    = 25.0
)

var mockPhases = []string{PhaseStill, PhaseNodding, PhaseShaking}

// mockSource synthesizes head gestures so the pipeline runs without hardware.
type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource returns a source that cycles still, nodding and shaking.
func NewMockSource() motion.Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

// mockPhase returns the gesture active at elapsed seconds.
func mockPhase(elapsed float64) string {
	i := int(math.Floor(elapsed/mockPhaseLength)) % len(mockPhases)
	if i < 0 {
		i += len(mockPhases)
	}
	return mockPhases[i]
}

func (m *mockSource) Next() (motion.Sample, error) {
	t := m.now()
	el := t.Sub(m.start).Seconds()

	w := 2 * math.Pi * mockGestureHz
	s, c := math.Sincos(w * el)

	var pose orientation.Pose
	var rate, acc motion.Vec3

	switch mockPhase(el) {
	case PhaseNodding:
		pose.Pitch = mockNodDeg * s
		rate.Y = mockNodDeg * math.Pi / 180 * w * c
		acc.X = -0.05 * s
	case PhaseShaking:
		pose.Yaw = mockShakeDeg * s
		rate.Z = mockShakeDeg * math.Pi / 180 * w * c
		acc.Y = 0.05 * s
	}

	return motion.Sample{
		Time:             t,
		RotationRate:     rate,
		UserAcceleration: acc,
		Attitude:         orientation.RotationFromPose(pose),
	}, nil
}
