// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import (
	"context"
	"time"
)

// State is the opaque recurrent vector a classifier carries between
// windows. A nil State means no prior window has been classified.
type State []float64

// Clone returns a copy of s, preserving nil.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Prediction is a classifier's output for one window.
type Prediction struct {
	// Label is the most likely category.
	Label string

	// Probabilities maps every known label to its probability.
	Probabilities map[string]float64

	// State is fed back as the prior state of the next window.
	State State
}

// Confidence returns the probability of the predicted label and whether
// the classifier reported one.
func (p *Prediction) Confidence() (float64, bool) {
	c, ok := p.Probabilities[p.Label]
	return c, ok
}

// Classifier runs a stateful sequence model over one full window.
// Implementations must not retain w after returning. prior is a copy owned
// by the callee.
type Classifier interface {
	Classify(ctx context.Context, w *Window, prior State) (*Prediction, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, w *Window, prior State) (*Prediction, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, w *Window, prior State) (*Prediction, error) {
	return f(ctx, w, prior)
}

// Result is what presentation sinks receive for each classified window.
type Result struct {
	Session       string             `json:"session,omitempty"`
	Sequence      uint64             `json:"sequence"`
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Time          time.Time          `json:"time"`
}

// Percent renders the confidence for display.
func (r Result) Percent() string {
	return FormatConfidence(r.Confidence)
}
