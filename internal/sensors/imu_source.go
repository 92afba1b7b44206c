// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/headmotion/internal/imu"
	"github.com/relabs-tech/headmotion/internal/motion"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

type imuDevice struct {
	imu *mpu9250.MPU9250
}

// NewIMUSource initializes the head-worn MPU9250 over SPI.
func NewIMUSource(spiDev, csPin string, scale imu.Scale, alpha float64) (motion.Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	// Apply configured sensor ranges
	if err := dev.SetAccelRange(scale.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(scale.GyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: ranges set to %s", scale)

	// Self-test
	testResult, err := dev.SelfTest()
	if err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	} else {
		log.Printf("IMU self-test passed:")
		log.Printf("  Accelerometer deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.AccelDeviation.X, testResult.AccelDeviation.Y, testResult.AccelDeviation.Z)
		log.Printf("  Gyroscope deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.GyroDeviation.X, testResult.GyroDeviation.Y, testResult.GyroDeviation.Z)
	}

	// Calibration expects the head to be still.
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("IMU calibration complete")
	}

	return newRawSource(&imuDevice{imu: dev}, scale, NewEstimator(alpha), time.Now), nil
}

// ReadRaw reads accelerometer and gyroscope counts.
func (d *imuDevice) ReadRaw() (imu.IMURaw, error) {
	ax, err := d.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := d.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := d.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := d.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := d.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := d.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.IMURaw{
		Source: "head",
		Ax:     ax,
		Ay:     ay,
		Az:     az,
		Gx:     gx,
		Gy:     gy,
		Gz:     gz,
	}, nil
}

// rawSource scales raw counts and feeds them through the estimator.
type rawSource struct {
	reader imu.IMURawReader
	scale  imu.Scale
	est    *Estimator
	now    func() time.Time
}

func newRawSource(r imu.IMURawReader, scale imu.Scale, est *Estimator, now func() time.Time) *rawSource {
	return &rawSource{reader: r, scale: scale, est: est, now: now}
}

func (s *rawSource) Next() (motion.Sample, error) {
	raw, err := s.reader.ReadRaw()
	if err != nil {
		return motion.Sample{}, err
	}
	return s.est.Sample(s.now(), s.scale.Accel(raw), s.scale.Gyro(raw)), nil
}
