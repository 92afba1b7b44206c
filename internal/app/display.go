// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/headmotion/internal/activity"
	"github.com/relabs-tech/headmotion/internal/config"
	"github.com/relabs-tech/headmotion/internal/orientation"
)

const (
	displayW = 128
	displayH = 64

	// confidence bar rows
	barTop    = 30
	barBottom = 36
)

// displayData holds the latest data for the OLED.
type displayData struct {
	mu sync.RWMutex

	pose     orientation.Pose
	havePose bool
	act      activity.Result
	haveAct  bool
}

func (d *displayData) setPose(p orientation.Pose) {
	d.mu.Lock()
	d.pose = p
	d.havePose = true
	d.mu.Unlock()
}

// Publish implements activity.Sink.
func (d *displayData) Publish(r activity.Result) {
	d.mu.Lock()
	d.act = r
	d.haveAct = true
	d.mu.Unlock()
}

type displaySnapshot struct {
	pose     orientation.Pose
	havePose bool
	act      activity.Result
	haveAct  bool
}

func (d *displayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{pose: d.pose, havePose: d.havePose, act: d.act, haveAct: d.haveAct}
}

// renderFrame draws the activity label, its confidence and the pose.
func renderFrame(s displaySnapshot) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !s.haveAct {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte("Head motion"))
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Waiting..."))
	} else {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte(strings.ToUpper(s.act.Label)))

		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(s.act.Percent()))

		// Confidence bar
		w := int(s.act.Confidence*displayW + 0.5)
		w = max(0, min(w, displayW))
		for x := 0; x < w; x++ {
			for y := barTop; y <= barBottom; y++ {
				img.SetBit(x, y, image1bit.On)
			}
		}
	}

	if s.havePose {
		drawer.Dot = fixed.P(0, 50)
		drawer.DrawBytes([]byte(fmt.Sprintf("P:%5.0f Y:%5.0f", s.pose.Pitch, s.pose.Yaw)))
		drawer.Dot = fixed.P(0, 63)
		drawer.DrawBytes([]byte(fmt.Sprintf("R:%5.0f", s.pose.Roll)))
	}

	return img
}

func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Println("display: SSD1306 initialized")

	data := &displayData{}
	if err := dev.Draw(dev.Bounds(), renderFrame(data.snapshot()), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, cfg.TopicPose, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("display: pose unmarshal error: %v", err)
			return
		}
		data.setPose(p)
	})
	if err != nil {
		return err
	}

	err = subscribe(client, cfg.TopicActivity, func(_ mqtt.Client, msg mqtt.Message) {
		var r activity.Result
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("display: activity unmarshal error: %v", err)
			return
		}
		data.Publish(r)
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			log.Println("display: shutting down")
			return nil
		case <-ticker.C:
			if err := dev.Draw(dev.Bounds(), renderFrame(data.snapshot()), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
