// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/headmotion/internal/activity"
	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/model"
	"github.com/relabs-tech/headmotion/internal/motion"
)

// mqttSink publishes results as retained JSON so late subscribers see
// the current activity.
type mqttSink struct {
	pub   publisher
	topic string
}

func (s *mqttSink) Publish(r activity.Result) {
	if err := publishJSON(s.pub, s.topic, true, r); err != nil {
		log.Printf("classifier: %v", err)
		return
	}
	log.Printf("classifier: window %d → %s %s", r.Sequence, r.Label, r.Percent())
}

// sampleHandler decodes samples on the MQTT goroutine and queues them for
// the aggregator. Samples that do not fit are dropped and counted.
func sampleHandler(ch chan<- motion.Sample, dropped *atomic.Uint64) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var s motion.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("classifier: sample unmarshal error: %v", err)
			return
		}
		select {
		case ch <- s:
		default:
			if n := dropped.Add(1); n == 1 || n%100 == 0 {
				log.Printf("classifier: sample queue full, %d samples dropped", n)
			}
		}
	}
}

// runAggregator owns agg: it is the only goroutine that touches it.
func runAggregator(ctx context.Context, agg *activity.Aggregator, samples <-chan motion.Sample, statsEvery int) {
	var lastWindows uint64
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-samples:
			// Failures are logged by the aggregator; keep consuming.
			_ = agg.Add(ctx, s)

			st := agg.Stats()
			if statsEvery > 0 && st.Windows != lastWindows && st.Windows%uint64(statsEvery) == 0 {
				log.Printf("classifier: %d samples, %d windows, %d failures, %d published",
					st.Samples, st.Windows, st.Failures, st.Published)
			}
			lastWindows = st.Windows
		}
	}
}

// loadClassifier loads the model and checks it against WINDOW_SIZE.
func loadClassifier(cfg *config.Config) (*model.LSTM, error) {
	m, err := model.Load(cfg.ModelPath, model.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if ws := m.WindowSize(); ws > 0 && ws != cfg.WindowSize {
		return nil, fmt.Errorf("model %s expects windows of %d samples, WINDOW_SIZE is %d",
			cfg.ModelPath, ws, cfg.WindowSize)
	}
	return m, nil
}

// RunClassifier subscribes to motion samples, classifies full windows and
// publishes the activity until ctx is cancelled.
func RunClassifier(ctx context.Context) error {
	cfg := config.Get()

	clf, err := loadClassifier(cfg)
	if err != nil {
		return err
	}
	log.Printf("classifier: model %s loaded, labels %v, window %d", cfg.ModelPath, clf.Labels(), cfg.WindowSize)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDClassifier)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	session := uuid.NewString()
	sink := activity.NewAsyncSink(&mqttSink{pub: client, topic: cfg.TopicActivity}, 16)
	defer sink.Close()

	agg, err := activity.NewAggregator(cfg.WindowSize, clf,
		activity.WithSink(sink),
		activity.WithSession(session),
		activity.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	log.Printf("classifier: session %s", session)

	samples := make(chan motion.Sample, cfg.SampleBuffer)
	var dropped atomic.Uint64
	if err := subscribe(client, cfg.TopicMotion, sampleHandler(samples, &dropped)); err != nil {
		return err
	}

	runAggregator(ctx, agg, samples, cfg.StatsEvery)

	st := agg.Stats()
	log.Printf("classifier: stopped: %d windows, %d failures, %d published, %d samples dropped, %d results dropped",
		st.Windows, st.Failures, st.Published, dropped.Load(), sink.Dropped())
	return nil
}
