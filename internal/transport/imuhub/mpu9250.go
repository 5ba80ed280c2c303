// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imuhub

import (
	"fmt"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
)

// Full-scale sensitivity at range code 0; each higher code halves it.
const (
	accelLSBPerG   = 16384.0
	gyroLSBPerDegS = 131.0
)

var (
	accelRanges = []int{2, 4, 8, 16}
	gyroRanges  = []int{250, 500, 1000, 2000}
)

type mpuSensor struct {
	name       string
	dev        *mpu9250.MPU9250
	accelScale float64
	gyroScale  float64
}

// OpenMPU9250 initializes an MPU9250 on spiDev with chip select csPin.
// accelRange and gyroRange are register codes 0-3.
func OpenMPU9250(spiDev, csPin string, accelRange, gyroRange byte, log *logging.Logger) (Sensor, error) {
	if accelRange > 3 || gyroRange > 3 {
		return nil, fmt.Errorf("%s: range codes must be 0-3, got accel %d gyro %d", spiDev, accelRange, gyroRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s: periph host init: %w", spiDev, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s: CS pin %q not found", spiDev, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s: SPI transport: %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%s: device creation: %w", spiDev, err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s: initialization: %w", spiDev, err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("%s: set accel range: %w", spiDev, err)
	}
	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("%s: set gyro range: %w", spiDev, err)
	}
	log.Info("imu configured", "sensor", spiDev,
		"accel_range_g", accelRanges[accelRange], "gyro_range_dps", gyroRanges[gyroRange])

	if err := dev.Calibrate(); err != nil {
		log.Warn("imu calibration failed", "sensor", spiDev, "error", err)
	} else {
		log.Info("imu calibration complete", "sensor", spiDev)
	}

	return &mpuSensor{
		name:       spiDev,
		dev:        dev,
		accelScale: accelLSBPerG / float64(int(1)<<accelRange),
		gyroScale:  gyroLSBPerDegS / float64(int(1)<<gyroRange),
	}, nil
}

func (s *mpuSensor) Read() (imu.Vector3, imu.Vector3, error) {
	var raw [6]int16
	readers := []func() (int16, error){
		s.dev.GetAccelerationX, s.dev.GetAccelerationY, s.dev.GetAccelerationZ,
		s.dev.GetRotationX, s.dev.GetRotationY, s.dev.GetRotationZ,
	}
	axes := []string{"accel X", "accel Y", "accel Z", "gyro X", "gyro Y", "gyro Z"}
	for i, read := range readers {
		v, err := read()
		if err != nil {
			return imu.Vector3{}, imu.Vector3{}, fmt.Errorf("%s %s: %w", s.name, axes[i], err)
		}
		raw[i] = v
	}

	accel := imu.Vector3{
		X: float32(float64(raw[0]) / s.accelScale),
		Y: float32(float64(raw[1]) / s.accelScale),
		Z: float32(float64(raw[2]) / s.accelScale),
	}
	gyro := imu.Vector3{
		X: float32(float64(raw[3]) / s.gyroScale),
		Y: float32(float64(raw[4]) / s.gyroScale),
		Z: float32(float64(raw[5]) / s.gyroScale),
	}
	return accel, gyro, nil
}
