// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/sail_logger/internal/imu"
)

// mockDip is the vertical component of the synthetic magnetic field,
// relative to a horizontal component of 1.
const mockDip = 0.8

type mockIMU struct {
	start time.Time
	now   func() time.Time
}

// NewMockIMU creates a mock IMU that generates a boat slowly turning
// through all headings while rolling ±15°. The samples are self-consistent,
// so a tilt-compensated heading recovers the synthetic heading exactly.
func NewMockIMU() imu.Reader {
	return &mockIMU{start: time.Now(), now: time.Now}
}

func (m *mockIMU) angles() (headingRad, rollRad float64) {
	elapsed := m.now().Sub(m.start).Seconds()
	headingDeg := math.Mod(elapsed*10, 360)
	rollDeg := 15 * math.Sin(elapsed*0.5)
	return headingDeg * math.Pi / 180, rollDeg * math.Pi / 180
}

func (m *mockIMU) ReadAccel() (imu.Vector, error) {
	_, r := m.angles()
	return imu.Vector{X: 0, Y: math.Sin(r), Z: math.Cos(r)}, nil
}

func (m *mockIMU) ReadGyro() (imu.Vector, error) {
	return imu.Vector{Z: 10}, nil
}

func (m *mockIMU) ReadMag() (imu.Vector, error) {
	h, r := m.angles()
	return imu.Vector{
		X: math.Cos(h),
		Y: math.Sin(h)*math.Cos(r) + mockDip*math.Sin(r),
		Z: -math.Sin(h)*math.Sin(r) + mockDip*math.Cos(r),
	}, nil
}
