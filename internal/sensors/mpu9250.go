// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/sail_logger/internal/imu"
)

var sleep = time.Sleep

// MPU-9250 register map (subset). The AK8963 magnetometer sits behind the
// MPU's auxiliary bus and is reached directly once bypass mode is enabled.
const (
	regSmplrtDiv    = 0x19
	regConfig       = 0x1A
	regGyroConfig   = 0x1B
	regAccelConfig  = 0x1C
	regAccelConfig2 = 0x1D
	regIntPinCfg    = 0x37
	regAccelXoutH   = 0x3B
	regGyroXoutH    = 0x43
	regUserCtrl     = 0x6A
	regPwrMgmt1     = 0x6B
	regWhoAmI       = 0x75

	whoAmIMPU9250 = 0x71
	whoAmIMPU9255 = 0x73

	bitReset    = 0x80
	clkPLL      = 0x01
	bitBypassEn = 0x02
	dlpf41Hz    = 0x03
	smplrt200Hz = 0x04 // 1 kHz / (1 + 4)

	akWIA   = 0x00
	akST1   = 0x02
	akCNTL1 = 0x0A
	akASAX  = 0x10

	akWhoAmI           = 0x48
	akModePowerDown    = 0x00
	akModeFuseROM      = 0x0F
	akModeCont100Hz    = 0x16 // 16-bit output, continuous mode 2
	akST2Overflow      = 0x08
	akMicroTeslaPerLSB = 4912.0 / 32760.0
)

// ErrMagOverflow is returned when the magnetic field exceeds the AK8963 range.
var ErrMagOverflow = errors.New("ak8963: magnetic sensor overflow")

var accelFullScale = [4]float64{2, 4, 8, 16}
var gyroFullScale = [4]float64{250, 500, 1000, 2000}

type regIO interface {
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

// MPU9250 reads accelerometer, gyroscope and magnetometer as three
// independent register transactions.
type MPU9250 struct {
	mpu regIO
	mag regIO

	accelScale float64 // g per LSB
	gyroScale  float64 // deg/s per LSB
	magAdj     [3]float64
}

// newMPU9250 probes and configures both dies. accelRange and gyroRange use
// the register encoding 0-3.
func newMPU9250(mpu, mag regIO, accelRange, gyroRange byte) (*MPU9250, error) {
	if mpu == nil || mag == nil {
		return nil, fmt.Errorf("mpu9250: register io is nil")
	}
	if accelRange > 3 || gyroRange > 3 {
		return nil, fmt.Errorf("mpu9250: range out of bounds (accel=%d gyro=%d)", accelRange, gyroRange)
	}

	d := &MPU9250{
		mpu:        mpu,
		mag:        mag,
		accelScale: accelFullScale[accelRange] / 32768.0,
		gyroScale:  gyroFullScale[gyroRange] / 32768.0,
	}
	if err := d.initMPU(accelRange, gyroRange); err != nil {
		return nil, err
	}
	if err := d.initMag(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *MPU9250) initMPU(accelRange, gyroRange byte) error {
	who, err := readU8(d.mpu, regWhoAmI)
	if err != nil {
		return fmt.Errorf("mpu9250: whoami read failed: %w", err)
	}
	if who != whoAmIMPU9250 && who != whoAmIMPU9255 {
		return fmt.Errorf("mpu9250: whoami=0x%02X want 0x%02X or 0x%02X", who, whoAmIMPU9250, whoAmIMPU9255)
	}

	if err := d.mpu.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("mpu9250: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)

	steps := []struct {
		name string
		reg  byte
		val  byte
	}{
		{"wake", regPwrMgmt1, clkPLL},
		{"disable i2c master", regUserCtrl, 0x00},
		{"enable bypass", regIntPinCfg, bitBypassEn},
		{"dlpf", regConfig, dlpf41Hz},
		{"sample rate", regSmplrtDiv, smplrt200Hz},
		{"gyro range", regGyroConfig, gyroRange << 3},
		{"accel range", regAccelConfig, accelRange << 3},
		{"accel dlpf", regAccelConfig2, dlpf41Hz},
	}
	for _, s := range steps {
		if err := d.mpu.WriteReg(s.reg, s.val); err != nil {
			return fmt.Errorf("mpu9250: %s failed: %w", s.name, err)
		}
		if s.reg == regPwrMgmt1 {
			sleep(10 * time.Millisecond)
		}
	}
	log.Printf("imu: mpu9250 ready (whoami=0x%02X, ±%.0fg, ±%.0f°/s)", who, accelFullScale[accelRange], gyroFullScale[gyroRange])
	return nil
}

func (d *MPU9250) initMag() error {
	who, err := readU8(d.mag, akWIA)
	if err != nil {
		return fmt.Errorf("ak8963: whoami read failed: %w", err)
	}
	if who != akWhoAmI {
		return fmt.Errorf("ak8963: whoami=0x%02X want 0x%02X", who, akWhoAmI)
	}

	if err := d.mag.WriteReg(akCNTL1, akModePowerDown); err != nil {
		return fmt.Errorf("ak8963: power down failed: %w", err)
	}
	sleep(10 * time.Millisecond)
	if err := d.mag.WriteReg(akCNTL1, akModeFuseROM); err != nil {
		return fmt.Errorf("ak8963: fuse rom mode failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	asa := make([]byte, 3)
	if err := d.mag.ReadReg(akASAX, asa); err != nil {
		return fmt.Errorf("ak8963: sensitivity adjustment read failed: %w", err)
	}
	for i, v := range asa {
		d.magAdj[i] = (float64(v)-128)*0.5/128 + 1
	}

	if err := d.mag.WriteReg(akCNTL1, akModePowerDown); err != nil {
		return fmt.Errorf("ak8963: power down failed: %w", err)
	}
	sleep(10 * time.Millisecond)
	if err := d.mag.WriteReg(akCNTL1, akModeCont100Hz); err != nil {
		return fmt.Errorf("ak8963: continuous mode failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	log.Printf("imu: ak8963 ready (sensitivity adj X=%.4f Y=%.4f Z=%.4f)", d.magAdj[0], d.magAdj[1], d.magAdj[2])
	return nil
}

// ReadAccel returns acceleration in g.
func (d *MPU9250) ReadAccel() (imu.Vector, error) {
	x, y, z, err := readBE3(d.mpu, regAccelXoutH)
	if err != nil {
		return imu.Vector{}, fmt.Errorf("mpu9250: accel read failed: %w", err)
	}
	return imu.Vector{
		X: float64(x) * d.accelScale,
		Y: float64(y) * d.accelScale,
		Z: float64(z) * d.accelScale,
	}, nil
}

// ReadGyro returns angular rate in deg/s.
func (d *MPU9250) ReadGyro() (imu.Vector, error) {
	x, y, z, err := readBE3(d.mpu, regGyroXoutH)
	if err != nil {
		return imu.Vector{}, fmt.Errorf("mpu9250: gyro read failed: %w", err)
	}
	return imu.Vector{
		X: float64(x) * d.gyroScale,
		Y: float64(y) * d.gyroScale,
		Z: float64(z) * d.gyroScale,
	}, nil
}

// ReadMag returns the magnetic field in µT, rotated into the accelerometer
// frame (AK8963 X/Y are swapped and Z inverted relative to the MPU die).
func (d *MPU9250) ReadMag() (imu.Vector, error) {
	// ST1, HXL..HZH, ST2 in one transaction; reading ST2 releases the
	// data registers for the next measurement.
	buf := make([]byte, 8)
	if err := d.mag.ReadReg(akST1, buf); err != nil {
		return imu.Vector{}, fmt.Errorf("ak8963: read failed: %w", err)
	}
	if buf[7]&akST2Overflow != 0 {
		return imu.Vector{}, ErrMagOverflow
	}

	hx := int16(uint16(buf[2])<<8 | uint16(buf[1]))
	hy := int16(uint16(buf[4])<<8 | uint16(buf[3]))
	hz := int16(uint16(buf[6])<<8 | uint16(buf[5]))

	mx := float64(hx) * d.magAdj[0] * akMicroTeslaPerLSB
	my := float64(hy) * d.magAdj[1] * akMicroTeslaPerLSB
	mz := float64(hz) * d.magAdj[2] * akMicroTeslaPerLSB

	return imu.Vector{X: my, Y: mx, Z: -mz}, nil
}

func readU8(dev regIO, reg byte) (byte, error) {
	b := make([]byte, 1)
	if err := dev.ReadReg(reg, b); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readBE3(dev regIO, reg byte) (x, y, z int16, err error) {
	buf := make([]byte, 6)
	if err = dev.ReadReg(reg, buf); err != nil {
		return 0, 0, 0, err
	}
	x = int16(uint16(buf[0])<<8 | uint16(buf[1]))
	y = int16(uint16(buf[2])<<8 | uint16(buf[3]))
	z = int16(uint16(buf[4])<<8 | uint16(buf[5]))
	return x, y, z, nil
}
