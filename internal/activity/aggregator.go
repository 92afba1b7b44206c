// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package activity turns a stream of motion samples into activity labels.
//
// An Aggregator fills fixed-size, non-overlapping windows of six channels
// and hands each full window to a stateful Classifier, threading the
// recurrent state returned by one window into the next:
//
//	agg, _ := activity.NewAggregator(20, clf, activity.WithSink(sink))
//	for {
//	    s, _ := src.Next()
//	    if err := agg.Add(ctx, s); err != nil {
//	        log.Printf("classifier: %v", err)
//	    }
//	}
//
// An Aggregator is owned by a single goroutine and does no locking.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/relabs-tech/headmotion/internal/motion"
)

// Stats counts aggregator activity since construction.
type Stats struct {
	Samples   uint64 `json:"samples"`
	Windows   uint64 `json:"windows"`
	Failures  uint64 `json:"failures"`
	Published uint64 `json:"published"`
}

// Aggregator collects samples into windows and runs the classifier.
type Aggregator struct {
	size    int
	clf     Classifier
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time
	session string

	win   *Window
	pos   int
	state State
	seq   uint64
	stats Stats
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSink sets where results are published.
func WithSink(s Sink) Option {
	return func(a *Aggregator) { a.sink = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l.With("component", "activity.aggregator") }
}

// WithSession tags every published result with a session identifier.
func WithSession(id string) Option {
	return func(a *Aggregator) { a.session = id }
}

// WithClock overrides the timestamp source for results.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator for windows of size samples.
func NewAggregator(size int, clf Classifier, opts ...Option) (*Aggregator, error) {
	if size <= 0 {
		return nil, ErrInvalidWindowSize
	}
	if clf == nil {
		return nil, ErrNoClassifier
	}
	a := &Aggregator{
		size:   size,
		clf:    clf,
		logger: slog.Default().With("component", "activity.aggregator"),
		now:    time.Now,
		win:    NewWindow(size),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Add writes one sample at the current position. When the window becomes
// full it is classified synchronously and the position returns to zero,
// whether or not classification succeeded. Values are not validated.
//
// A failed classification is returned as a *ClassifyError; the recurrent
// state and the sink are left untouched.
func (a *Aggregator) Add(ctx context.Context, s motion.Sample) error {
	i := a.pos
	a.win.AccX[i] = s.UserAcceleration.X
	a.win.AccY[i] = s.UserAcceleration.Y
	a.win.AccZ[i] = s.UserAcceleration.Z
	a.win.RotX[i] = s.RotationRate.X
	a.win.RotY[i] = s.RotationRate.Y
	a.win.RotZ[i] = s.RotationRate.Z

	a.pos++
	a.stats.Samples++
	if a.pos < a.size {
		return nil
	}

	err := a.classify(ctx)
	a.pos = 0
	return err
}

func (a *Aggregator) classify(ctx context.Context) error {
	a.seq++
	a.stats.Windows++
	seq := a.seq

	pred, err := a.clf.Classify(ctx, a.win, a.state.Clone())
	if err == nil && pred == nil {
		err = ErrNilPrediction
	}
	if err != nil {
		a.stats.Failures++
		a.logger.Warn("classification failed, keeping previous state",
			"window", seq,
			"error", err,
		)
		return &ClassifyError{Sequence: seq, Err: err}
	}

	a.state = pred.State.Clone()

	conf, ok := pred.Confidence()
	if !ok {
		a.logger.Debug("prediction has no probability for its label",
			"window", seq,
			"label", pred.Label,
		)
		return nil
	}

	if a.sink != nil {
		a.sink.Publish(Result{
			Session:       a.session,
			Sequence:      seq,
			Label:         pred.Label,
			Confidence:    conf,
			Probabilities: pred.Probabilities,
			Time:          a.now(),
		})
		a.stats.Published++
	}
	return nil
}

// Position returns the number of samples in the current window.
func (a *Aggregator) Position() int {
	return a.pos
}

// Size returns the configured window size.
func (a *Aggregator) Size() int {
	return a.size
}

// State returns the recurrent state that will be fed to the next window.
func (a *Aggregator) State() State {
	return a.state
}

// Stats returns counters since construction.
func (a *Aggregator) Stats() Stats {
	return a.stats
}

// Reset discards the partial window and the recurrent state.
func (a *Aggregator) Reset() {
	a.pos = 0
	a.state = nil
}
