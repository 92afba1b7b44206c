// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"

	"github.com/adrianmo/go-nmea"
	"github.com/relabs-tech/headmotion/internal/motion"
)

// TypeIMU is the sentence type of the proprietary $PIMU sentence:
//
//	$PIMU,ax,ay,az,gx,gy,gz*CS
//
// Acceleration is in g with gravity included, rotation rate in rad/s.
const TypeIMU = "IMU"

var ErrNotIMUSentence = errors.New("not a $PIMU sentence")

type IMUSentence struct {
	nmea.BaseSentence
	Accel motion.Vec3
	Gyro  motion.Vec3
}

var imuParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeIMU: parseIMUSentence,
	},
}

func parseIMUSentence(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := IMUSentence{
		BaseSentence: s,
		Accel: motion.Vec3{
			X: p.Float64(0, "accel x"),
			Y: p.Float64(1, "accel y"),
			Z: p.Float64(2, "accel z"),
		},
		Gyro: motion.Vec3{
			X: p.Float64(3, "gyro x"),
			Y: p.Float64(4, "gyro y"),
			Z: p.Float64(5, "gyro z"),
		},
	}
	return m, p.Err()
}

// ParseIMULine parses one line, checksum included.
func ParseIMULine(line string) (IMUSentence, error) {
	s, err := imuParser.Parse(line)
	if err != nil {
		return IMUSentence{}, err
	}
	m, ok := s.(IMUSentence)
	if !ok {
		return IMUSentence{}, fmt.Errorf("%w: %s", ErrNotIMUSentence, s.Prefix())
	}
	return m, nil
}
