// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/headmotion/internal/activity"
)

var (
	// ErrWindowSize is returned for a window whose length differs from training.
	ErrWindowSize = errors.New("model: window size mismatch")

	// ErrStateSize is returned for a prior state of the wrong length.
	ErrStateSize = errors.New("model: state size mismatch")

	// ErrInvalidWeights is returned when a weights file has inconsistent shapes.
	ErrInvalidWeights = errors.New("model: invalid weights")
)

// Weights is the on-disk description of an LSTM classifier. The file may
// be YAML or JSON.
type Weights struct {
	Labels     []string `yaml:"labels"`
	WindowSize int      `yaml:"window_size"`
	HiddenSize int      `yaml:"hidden_size"`

	InputWeights     [][]float64 `yaml:"input_weights"`     // 4H rows of 6
	RecurrentWeights [][]float64 `yaml:"recurrent_weights"` // 4H rows of H
	Bias             []float64   `yaml:"bias"`              // 4H
	OutputWeights    [][]float64 `yaml:"output_weights"`    // L rows of H
	OutputBias       []float64   `yaml:"output_bias"`       // L
}

// LoadWeights reads a weights file.
func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model weights: %w", err)
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse model weights: %w", err)
	}
	return &w, nil
}

// Load reads a weights file and builds the classifier.
func Load(path string, opts ...Option) (*LSTM, error) {
	w, err := LoadWeights(path)
	if err != nil {
		return nil, err
	}
	m, err := NewLSTM(w, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks every matrix shape against HiddenSize and Labels.
func (w *Weights) Validate() error {
	h := w.HiddenSize
	if h <= 0 {
		return fmt.Errorf("%w: hidden_size must be positive, got %d", ErrInvalidWeights, h)
	}
	if len(w.Labels) == 0 {
		return fmt.Errorf("%w: at least one label required", ErrInvalidWeights)
	}
	if w.WindowSize < 0 {
		return fmt.Errorf("%w: window_size must not be negative", ErrInvalidWeights)
	}
	if err := checkMatrix("input_weights", w.InputWeights, 4*h, activity.NumChannels); err != nil {
		return err
	}
	if err := checkMatrix("recurrent_weights", w.RecurrentWeights, 4*h, h); err != nil {
		return err
	}
	if len(w.Bias) != 4*h {
		return fmt.Errorf("%w: bias has %d values, want %d", ErrInvalidWeights, len(w.Bias), 4*h)
	}
	if err := checkMatrix("output_weights", w.OutputWeights, len(w.Labels), h); err != nil {
		return err
	}
	if len(w.OutputBias) != len(w.Labels) {
		return fmt.Errorf("%w: output_bias has %d values, want %d", ErrInvalidWeights, len(w.OutputBias), len(w.Labels))
	}
	return nil
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%w: %s has %d rows, want %d", ErrInvalidWeights, name, len(m), rows)
	}
	for i, r := range m {
		if len(r) != cols {
			return fmt.Errorf("%w: %s row %d has %d values, want %d", ErrInvalidWeights, name, i, len(r), cols)
		}
	}
	return nil
}

// Zero returns weights of the given shape with every parameter zero.
func Zero(labels []string, windowSize, hiddenSize int) *Weights {
	h := hiddenSize
	return &Weights{
		Labels:           append([]string(nil), labels...),
		WindowSize:       windowSize,
		HiddenSize:       h,
		InputWeights:     zeros(4*h, activity.NumChannels),
		RecurrentWeights: zeros(4*h, h),
		Bias:             make([]float64, 4*h),
		OutputWeights:    zeros(len(labels), h),
		OutputBias:       make([]float64, len(labels)),
	}
}

func zeros(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
