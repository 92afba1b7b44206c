// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/relabs-tech/headmotion/internal/motion"
)

// serialSource reads $PIMU sentences from an external IMU board.
// Next blocks until a valid sentence arrives, so the board sets the rate.
type serialSource struct {
	port    io.ReadCloser
	reader  *bufio.Reader
	est     *Estimator
	now     func() time.Time
	skipped uint64
}

// NewSerialSource opens the serial port.
func NewSerialSource(portName string, baudRate int, alpha float64) (motion.Source, error) {
	options := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	log.Printf("serial IMU: reading %s at %d baud", portName, baudRate)

	return newSerialSource(port, NewEstimator(alpha), time.Now), nil
}

func newSerialSource(port io.ReadCloser, est *Estimator, now func() time.Time) *serialSource {
	return &serialSource{
		port:   port,
		reader: bufio.NewReader(port),
		est:    est,
		now:    now,
	}
}

func (s *serialSource) Next() (motion.Sample, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			return motion.Sample{}, fmt.Errorf("serial read: %w", err)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		m, perr := ParseIMULine(line)
		if perr != nil {
			s.skipped++
			continue
		}
		return s.est.Sample(s.now(), m.Accel, m.Gyro), nil
	}
}

// Skipped returns how many sentences were rejected.
func (s *serialSource) Skipped() uint64 {
	return s.skipped
}

func (s *serialSource) Close() error {
	return s.port.Close()
}
