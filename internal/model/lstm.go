// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package model provides a reference recurrent classifier for activity
// windows: one LSTM layer followed by a softmax head.
//
// The recurrent state exchanged with the aggregator is the concatenation
// [h | c] of the hidden and cell vectors, so its length is 2*HiddenSize.
package model

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/headmotion/internal/activity"
)

// LSTM is a single-layer LSTM sequence classifier. Gate rows are stacked
// in the order input, forget, cell, output.
type LSTM struct {
	labels     []string
	windowSize int
	hidden     int

	wx *mat.Dense    // 4H x NumChannels
	wh *mat.Dense    // 4H x H
	b  *mat.VecDense // 4H
	wo *mat.Dense    // L x H
	bo *mat.VecDense // L

	logger *slog.Logger
}

// Option configures an LSTM.
type Option func(*LSTM)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *LSTM) { m.logger = l.With("component", "model.lstm") }
}

// NewLSTM builds a classifier from weights, validating every shape.
func NewLSTM(w *Weights, opts ...Option) (*LSTM, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	h := w.HiddenSize
	l := len(w.Labels)

	m := &LSTM{
		labels:     append([]string(nil), w.Labels...),
		windowSize: w.WindowSize,
		hidden:     h,
		wx:         mat.NewDense(4*h, activity.NumChannels, flatten(w.InputWeights)),
		wh:         mat.NewDense(4*h, h, flatten(w.RecurrentWeights)),
		b:          mat.NewVecDense(4*h, append([]float64(nil), w.Bias...)),
		wo:         mat.NewDense(l, h, flatten(w.OutputWeights)),
		bo:         mat.NewVecDense(l, append([]float64(nil), w.OutputBias...)),
		logger:     slog.Default().With("component", "model.lstm"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Labels returns the output categories in head order.
func (m *LSTM) Labels() []string {
	return append([]string(nil), m.labels...)
}

// WindowSize returns the window length the model was trained on, or 0 if
// the weights do not pin one.
func (m *LSTM) WindowSize() int {
	return m.windowSize
}

// StateSize returns the length of the recurrent state vector.
func (m *LSTM) StateSize() int {
	return 2 * m.hidden
}

// Classify runs the window through the LSTM starting from prior (zeros if
// nil) and returns the softmax over labels and the final [h | c] state.
func (m *LSTM) Classify(ctx context.Context, w *activity.Window, prior activity.State) (*activity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.windowSize > 0 && w.Len() != m.windowSize {
		return nil, fmt.Errorf("%w: got %d, model expects %d", ErrWindowSize, w.Len(), m.windowSize)
	}
	if prior != nil && len(prior) != m.StateSize() {
		return nil, fmt.Errorf("%w: got %d, model expects %d", ErrStateSize, len(prior), m.StateSize())
	}

	hd := m.hidden
	h := mat.NewVecDense(hd, nil)
	c := mat.NewVecDense(hd, nil)
	if prior != nil {
		for i := 0; i < hd; i++ {
			h.SetVec(i, prior[i])
			c.SetVec(i, prior[hd+i])
		}
	}

	gates := mat.NewVecDense(4*hd, nil)
	rec := mat.NewVecDense(4*hd, nil)
	x := mat.NewVecDense(activity.NumChannels, nil)

	for t := 0; t < w.Len(); t++ {
		f := w.Features(t)
		for i, v := range f {
			x.SetVec(i, v)
		}

		gates.MulVec(m.wx, x)
		rec.MulVec(m.wh, h)
		gates.AddVec(gates, rec)
		gates.AddVec(gates, m.b)

		for j := 0; j < hd; j++ {
			ig := sigmoid(gates.AtVec(j))
			fg := sigmoid(gates.AtVec(hd + j))
			gg := math.Tanh(gates.AtVec(2*hd + j))
			og := sigmoid(gates.AtVec(3*hd + j))

			cj := fg*c.AtVec(j) + ig*gg
			c.SetVec(j, cj)
			h.SetVec(j, og*math.Tanh(cj))
		}
	}

	logits := mat.NewVecDense(len(m.labels), nil)
	logits.MulVec(m.wo, h)
	logits.AddVec(logits, m.bo)
	probs := softmax(logits.RawVector().Data)

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	dist := make(map[string]float64, len(m.labels))
	for i, label := range m.labels {
		dist[label] = probs[i]
	}

	state := make(activity.State, 2*hd)
	for i := 0; i < hd; i++ {
		state[i] = h.AtVec(i)
		state[hd+i] = c.AtVec(i)
	}

	m.logger.Debug("window classified",
		"label", m.labels[best],
		"probability", probs[best],
	)

	return &activity.Prediction{
		Label:         m.labels[best],
		Probabilities: dist,
		State:         state,
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func softmax(logits []float64) []float64 {
	maxv := math.Inf(-1)
	for _, v := range logits {
		maxv = math.Max(maxv, v)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxv)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func flatten(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// Verify LSTM implements activity.Classifier at compile time.
var _ activity.Classifier = (*LSTM)(nil)
