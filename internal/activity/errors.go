// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindowSize is returned for a window size below one.
	ErrInvalidWindowSize = errors.New("activity: window size must be positive")

	// ErrNoClassifier is returned when an aggregator is built without a classifier.
	ErrNoClassifier = errors.New("activity: classifier required")

	// ErrNilPrediction is reported when a classifier returns neither a prediction nor an error.
	ErrNilPrediction = errors.New("activity: classifier returned no prediction")
)

// ClassifyError reports a failed inference for one window. The aggregator's
// recurrent state is left as it was before the window.
type ClassifyError struct {
	Sequence uint64
	Err      error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("activity: classify window %d: %v", e.Sequence, e.Err)
}

func (e *ClassifyError) Unwrap() error {
	return e.Err
}
