// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/headmotion/internal/activity"
	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/motion"
	"github.com/relabs-tech/headmotion/internal/orientation"
	"github.com/relabs-tech/headmotion/internal/sensors"
)

// localPipeline runs source, tracker, aggregator and console sink in one
// process, without a broker.
type localPipeline struct {
	tracker   *orientation.Tracker
	agg       *activity.Aggregator
	out       *consolePrinter
	poseEvery int
	count     int
}

func newLocalPipeline(clf activity.Classifier, windowSize, poseEvery int, w io.Writer) (*localPipeline, error) {
	out := newConsolePrinter(w)
	agg, err := activity.NewAggregator(windowSize, clf,
		activity.WithSink(out),
		activity.WithSession(uuid.NewString()),
		activity.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, err
	}
	return &localPipeline{
		tracker:   orientation.NewTracker(),
		agg:       agg,
		out:       out,
		poseEvery: poseEvery,
	}, nil
}

func (p *localPipeline) handleSample(ctx context.Context, s motion.Sample) {
	pose := p.tracker.Update(s.Attitude)
	p.count++
	if p.poseEvery > 0 && p.count%p.poseEvery == 0 {
		p.out.Pose(pose)
	}
	// Failures are logged by the aggregator.
	_ = p.agg.Add(ctx, s)
}

// RunConsole runs the whole pipeline in-process and prints to stdout.
func RunConsole(ctx context.Context) error {
	cfg := config.Get()

	clf, err := loadClassifier(cfg)
	if err != nil {
		return err
	}

	src, err := sensors.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open motion source: %w", err)
	}
	defer closeSource(src)

	p, err := newLocalPipeline(clf, cfg.WindowSize, cfg.WindowSize, os.Stdout)
	if err != nil {
		return err
	}
	log.Printf("console: %s source, window %d, labels %v", cfg.MotionSource, cfg.WindowSize, clf.Labels())

	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	if sensors.Paced(cfg) {
		interval = 0
	}

	err = sampleLoop(ctx, src, interval, func(s motion.Sample) {
		p.handleSample(ctx, s)
	})

	st := p.agg.Stats()
	log.Printf("console: %d windows, %d failures, %d published", st.Windows, st.Failures, st.Published)
	return err
}
