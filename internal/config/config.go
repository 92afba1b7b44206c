// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Motion source kinds accepted by MOTION_SOURCE.
const (
	SourceMock   = "mock"
	SourceIMU    = "imu"
	SourceSerial = "serial"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker             string
	MQTTClientIDProducer   string
	MQTTClientIDClassifier string
	MQTTClientIDConsole    string
	MQTTClientIDWeb        string
	MQTTClientIDDisplay    string

	// Topics
	TopicMotion    string
	TopicPose      string
	TopicActivity  string
	TopicReference string

	// Motion source
	MotionSource   string  // "mock", "imu" or "serial"
	SampleInterval int     // milliseconds between samples (ticker-driven sources)
	FilterAlpha    float64 // complementary filter gyro weight

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Serial IMU
	SerialPort     string
	SerialBaudRate int

	// Classifier
	WindowSize   int
	ModelPath    string
	SampleBuffer int // samples queued between MQTT callback and aggregator
	StatsEvery   int // log aggregator stats every N windows (0 = never)

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional key at its default.
func Default() *Config {
	return &Config{
		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDProducer:   "headmotion-producer",
		MQTTClientIDClassifier: "headmotion-classifier",
		MQTTClientIDConsole:    "headmotion-console",
		MQTTClientIDWeb:        "headmotion-web",
		MQTTClientIDDisplay:    "headmotion-display",

		TopicMotion:    "headmotion/motion",
		TopicPose:      "headmotion/pose",
		TopicActivity:  "headmotion/activity",
		TopicReference: "headmotion/reference",

		MotionSource:   SourceMock,
		SampleInterval: 100, // 10 Hz, the rate the classifier was trained at
		FilterAlpha:    0.98,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		SerialBaudRate: 115200,

		WindowSize:   20,
		ModelPath:    "models/head_gesture.yaml",
		SampleBuffer: 256,
		StatsEvery:   30,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayUpdateInterval: 250,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CLASSIFIER":
		c.MQTTClientIDClassifier = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_MOTION":
		c.TopicMotion = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_ACTIVITY":
		c.TopicActivity = value
	case "TOPIC_REFERENCE":
		c.TopicReference = value

	// Motion source
	case "MOTION_SOURCE":
		switch value {
		case SourceMock, SourceIMU, SourceSerial:
			c.MotionSource = value
		default:
			return fmt.Errorf("MOTION_SOURCE must be %q, %q or %q, got %q", SourceMock, SourceIMU, SourceSerial, value)
		}
	case "SAMPLE_INTERVAL":
		return setPositiveInt(&c.SampleInterval, key, value)
	case "FILTER_ALPHA":
		alpha, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FILTER_ALPHA %q: %w", value, err)
		}
		if alpha < 0 || alpha > 1 {
			return fmt.Errorf("FILTER_ALPHA must be within 0-1, got %v", alpha)
		}
		c.FilterAlpha = alpha

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Serial IMU
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return setPositiveInt(&c.SerialBaudRate, key, value)

	// Classifier
	case "WINDOW_SIZE":
		return setPositiveInt(&c.WindowSize, key, value)
	case "MODEL_PATH":
		c.ModelPath = value
	case "SAMPLE_BUFFER":
		return setPositiveInt(&c.SampleBuffer, key, value)
	case "STATS_EVERY":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid STATS_EVERY %q: %w", value, err)
		}
		if n < 0 {
			return fmt.Errorf("STATS_EVERY must not be negative, got %d", n)
		}
		c.StatsEvery = n

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		return setPositiveInt(&c.DisplayUpdateInterval, key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setPositiveInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, n)
	}
	*dst = n
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicMotion == "" || c.TopicPose == "" || c.TopicActivity == "" || c.TopicReference == "" {
		return fmt.Errorf("TOPIC_MOTION, TOPIC_POSE, TOPIC_ACTIVITY and TOPIC_REFERENCE must not be empty")
	}
	switch c.MotionSource {
	case SourceIMU:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for MOTION_SOURCE=imu")
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for MOTION_SOURCE=imu")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for MOTION_SOURCE=serial")
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
