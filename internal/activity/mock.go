// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package activity

import (
	"context"
	"sync"
	"time"
)

// Mock implements Classifier for testing and dry runs.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(ctx context.Context, w *Window, prior State) (*Prediction, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Classify invocation. Window and Prior are copies.
type MockCall struct {
	Window *Window
	Prior  State
	Time   time.Time
}

// NewMock returns a mock that always predicts label with probability 1 and
// returns a one-element state holding the call number (1, 2, 3, ...).
func NewMock(label string) *Mock {
	m := &Mock{}
	m.ClassifyFunc = func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
		return &Prediction{
			Label:         label,
			Probabilities: map[string]float64{label: 1},
			State:         State{float64(m.CallCount())},
		}, nil
	}
	return m
}

// FailingMock returns a mock whose every call fails with err.
func FailingMock(err error) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
			return nil, err
		},
	}
}

// Classify records the call and delegates to ClassifyFunc.
func (m *Mock) Classify(ctx context.Context, w *Window, prior State) (*Prediction, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{
		Window: w.Clone(),
		Prior:  prior.Clone(),
		Time:   time.Now(),
	})
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, w, prior)
	}
	return nil, ErrNilPrediction
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of Classify calls so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
