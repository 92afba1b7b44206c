// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headmotion/internal/activity"
	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/orientation"
)

// consolePrinter is the text presentation sink.
type consolePrinter struct {
	mu          sync.Mutex
	w           io.Writer
	lastSession string
}

func newConsolePrinter(w io.Writer) *consolePrinter {
	return &consolePrinter{w: w}
}

func (c *consolePrinter) Pose(p orientation.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n", p.Roll, p.Pitch, p.Yaw)
}

// Publish implements activity.Sink.
func (c *consolePrinter) Publish(r activity.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Session != "" && r.Session != c.lastSession {
		if c.lastSession != "" {
			fmt.Fprintf(c.w, "[ACT ]  classifier restarted (session %s)\n", r.Session)
		}
		c.lastSession = r.Session
	}
	fmt.Fprintf(c.w, "[ACT ]  %-10s %4s  (window %d)\n", r.Label, r.Percent(), r.Sequence)
}

func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()
	out := newConsolePrinter(os.Stdout)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// Subscribe to relative pose
	err = subscribe(client, cfg.TopicPose, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		out.Pose(p)
	})
	if err != nil {
		return err
	}

	// Subscribe to activity
	err = subscribe(client, cfg.TopicActivity, func(_ mqtt.Client, msg mqtt.Message) {
		var r activity.Result
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: activity unmarshal error: %v", err)
			return
		}
		out.Publish(r)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}
