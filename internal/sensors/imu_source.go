// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/imu"
)

// i2cRegs adapts a periph I2C device to register reads and writes.
type i2cRegs struct {
	dev *i2c.Dev
}

func (r i2cRegs) ReadReg(reg byte, dst []byte) error {
	return r.dev.Tx([]byte{reg}, dst)
}

func (r i2cRegs) WriteReg(reg, value byte) error {
	return r.dev.Tx([]byte{reg, value}, nil)
}

// IMUSource is an initialized IMU plus whatever must be released at exit.
type IMUSource struct {
	imu.Reader
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewIMUSource builds the IMU selected by IMU_SOURCE. Any failure here is
// an initialization failure: the logger must not enter its sampling loop.
func NewIMUSource(cfg *config.Config) (*IMUSource, error) {
	switch cfg.IMUSource {
	case config.IMUSourceMock:
		log.Println("imu: using mock source")
		return &IMUSource{Reader: NewMockIMU(), Closer: nopCloser{}}, nil
	case config.IMUSourceMPU9250:
		return openMPU9250(cfg)
	default:
		return nil, fmt.Errorf("imu: unknown source %q", cfg.IMUSource)
	}
}

func openMPU9250(cfg *config.Config) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.IMUI2CBus)
	if err != nil {
		return nil, fmt.Errorf("imu: i2c open failed on bus %q: %w", cfg.IMUI2CBus, err)
	}

	mpu := i2cRegs{dev: &i2c.Dev{Bus: bus, Addr: cfg.IMUI2CAddr}}
	mag := i2cRegs{dev: &i2c.Dev{Bus: bus, Addr: cfg.MagI2CAddr}}

	dev, err := newMPU9250(mpu, mag, cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("imu: %w", err)
	}
	log.Printf("imu: mpu9250 at 0x%02X, ak8963 at 0x%02X on i2c bus %q", cfg.IMUI2CAddr, cfg.MagI2CAddr, cfg.IMUI2CBus)
	return &IMUSource{Reader: dev, Closer: bus}, nil
}
