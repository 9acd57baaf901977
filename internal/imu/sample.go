// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "errors"

// Vector is one 3-axis reading in sensor frame.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sample represents a single accel+gyro+mag reading taken within one cycle.
// Units only need to be consistent per sensor; the heading math works on
// ratios.
type Sample struct {
	Accel Vector `json:"accel"` // g
	Gyro  Vector `json:"gyro"`  // deg/s
	Mag   Vector `json:"mag"`   // µT
}

// Reader exposes the three independent blocking reads of an IMU.
// Any of them may fail on its own.
type Reader interface {
	ReadAccel() (Vector, error)
	ReadGyro() (Vector, error)
	ReadMag() (Vector, error)
}

// ReadSample performs exactly one read of each sensor in accel, gyro, mag
// order, even when an earlier read failed. The gyro value is returned but
// the heading computation does not use it; the read stays because it may also
// clear the device data-ready state.
func ReadSample(r Reader) (Sample, error) {
	var s Sample
	accel, errA := r.ReadAccel()
	gyro, errG := r.ReadGyro()
	mag, errM := r.ReadMag()
	if err := errors.Join(errA, errG, errM); err != nil {
		return Sample{}, err
	}
	s.Accel, s.Gyro, s.Mag = accel, gyro, mag
	return s, nil
}
