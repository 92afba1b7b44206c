// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/motion"
	"github.com/relabs-tech/headmotion/internal/orientation"
	"github.com/relabs-tech/headmotion/internal/sensors"
)

// Reference actions carried on TOPIC_REFERENCE.
const (
	ReferenceSet   = "set"   // current attitude becomes the zero pose
	ReferenceReset = "reset" // back to the sensor's own frame
)

// ReferenceCommand asks the producer to move the reference frame.
type ReferenceCommand struct {
	Action string `json:"action"`
}

type motionProducer struct {
	cfg     *config.Config
	pub     publisher
	tracker *orientation.Tracker
	count   uint64
}

func newMotionProducer(cfg *config.Config, pub publisher) *motionProducer {
	return &motionProducer{
		cfg:     cfg,
		pub:     pub,
		tracker: orientation.NewTracker(),
	}
}

// handleSample publishes the sample and its pose relative to the reference.
func (p *motionProducer) handleSample(s motion.Sample) {
	pose := p.tracker.Update(s.Attitude)

	if err := publishJSON(p.pub, p.cfg.TopicMotion, false, s); err != nil {
		log.Printf("producer: %v", err)
		return
	}
	if err := publishJSON(p.pub, p.cfg.TopicPose, true, pose); err != nil {
		log.Printf("producer: %v", err)
		return
	}

	p.count++
	if p.count%50 == 0 {
		log.Printf("producer: %d samples | pose R=%.2f P=%.2f Y=%.2f | rot x=%.2f y=%.2f z=%.2f",
			p.count, pose.Roll, pose.Pitch, pose.Yaw,
			s.RotationRate.X, s.RotationRate.Y, s.RotationRate.Z)
	}
}

func (p *motionProducer) applyReference(cmd ReferenceCommand) error {
	switch cmd.Action {
	case ReferenceSet, "":
		return p.tracker.ReferenceToCurrent()
	case ReferenceReset:
		p.tracker.ResetReference()
		return nil
	default:
		return fmt.Errorf("unknown reference action %q", cmd.Action)
	}
}

func (p *motionProducer) handleReference(_ mqtt.Client, msg mqtt.Message) {
	var cmd ReferenceCommand
	if len(msg.Payload()) > 0 {
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			log.Printf("producer: reference command unmarshal error: %v", err)
			return
		}
	}
	if err := p.applyReference(cmd); err != nil {
		log.Printf("producer: reference %q: %v", cmd.Action, err)
		return
	}
	log.Printf("producer: reference frame %s", referenceVerb(cmd.Action))
}

func referenceVerb(action string) string {
	if action == ReferenceReset {
		return "reset to sensor frame"
	}
	return "set to current attitude"
}

// RunMotionProducer reads the configured motion source and publishes
// samples and relative pose until ctx is cancelled.
func RunMotionProducer(ctx context.Context) error {
	cfg := config.Get()

	src, err := sensors.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open motion source: %w", err)
	}
	defer closeSource(src)
	log.Printf("producer: using %s motion source", cfg.MotionSource)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	p := newMotionProducer(cfg, client)
	if err := subscribe(client, cfg.TopicReference, p.handleReference); err != nil {
		return err
	}

	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	if sensors.Paced(cfg) {
		interval = 0
	}

	log.Println("producer: starting publish loop")
	err = sampleLoop(ctx, src, interval, p.handleSample)
	log.Printf("producer: stopped after %d samples", p.count)
	return err
}
