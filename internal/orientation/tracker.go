// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/headmotion/internal/motion"
)

// ErrNoAttitude is returned when the reference is reset before any attitude was seen.
var ErrNoAttitude = errors.New("orientation: no attitude received yet")

// Tracker reports poses relative to a reference attitude. Safe for
// concurrent use: the reference may be reset from a different goroutine
// than the one feeding samples.
type Tracker struct {
	mu       sync.RWMutex
	refInv   *mat.Dense
	last     motion.RotationMatrix
	haveLast bool
}

// NewTracker returns a tracker whose reference is the identity attitude.
func NewTracker() *Tracker {
	return &Tracker{refInv: toDense(motion.Identity())}
}

// SetReference makes r the zero pose for subsequent updates.
func (t *Tracker) SetReference(r motion.RotationMatrix) error {
	var inv mat.Dense
	if err := inv.Inverse(toDense(r)); err != nil {
		return fmt.Errorf("orientation: reference attitude not invertible: %w", err)
	}
	t.mu.Lock()
	t.refInv = &inv
	t.mu.Unlock()
	return nil
}

// ReferenceToCurrent uses the most recent attitude as the reference.
func (t *Tracker) ReferenceToCurrent() error {
	t.mu.RLock()
	last, ok := t.last, t.haveLast
	t.mu.RUnlock()
	if !ok {
		return ErrNoAttitude
	}
	return t.SetReference(last)
}

// ResetReference restores the identity reference.
func (t *Tracker) ResetReference() {
	t.mu.Lock()
	t.refInv = toDense(motion.Identity())
	t.mu.Unlock()
}

// Relative returns the pose of r with respect to the reference.
func (t *Tracker) Relative(r motion.RotationMatrix) Pose {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var rel mat.Dense
	rel.Mul(toDense(r), t.refInv)
	return PoseFromRotation(fromDense(&rel))
}

// Update records r as the latest attitude and returns its relative pose.
func (t *Tracker) Update(r motion.RotationMatrix) Pose {
	t.mu.Lock()
	t.last = r
	t.haveLast = true
	t.mu.Unlock()
	return t.Relative(r)
}
