// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/sail_logger/internal/imu"
)

// Heading is a magnetic heading in degrees, or no heading at all.
// A Heading with Available == false never carries a meaningful Degrees value.
type Heading struct {
	Degrees   float64 `json:"degrees"`
	Available bool    `json:"available"`
}

// Degrees returns an available heading.
func Degrees(d float64) Heading {
	return Heading{Degrees: d, Available: true}
}

// Unavailable returns the "no heading" value.
func Unavailable() Heading {
	return Heading{}
}

// TiltCompensatedHeading computes the magnetic heading of a single sample,
// correcting the magnetometer for the pitch/roll seen by the accelerometer:
//
//	Ax' = Ax/|A|, Ay' = Ay/|A|
//	x   = mx(1-Ax'²) - my·Ax'·Ay' - mz·Ax'·sqrt(1-Ax'²-Ay'²)
//	y   = my·sqrt(1-Ax'²-Ay'²) - mz·Ay'
//	hdg = atan2(y, x)
//
// The result is in (-180, 180]. No filtering or calibration is applied.
func TiltCompensatedHeading(s imu.Sample) Heading {
	a := s.Accel
	total := math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
	if total == 0 || !finite(total) {
		return Unavailable()
	}
	return compensate(a.X/total, a.Y/total, s.Mag)
}

// compensate applies the tilt correction to already-normalized accel axes.
func compensate(axn, ayn float64, m imu.Vector) Heading {
	radicand := 1 - axn*axn - ayn*ayn
	if radicand < 0 || math.IsNaN(radicand) {
		return Unavailable()
	}
	b := 1 - axn*axn
	c := axn * ayn
	d := math.Sqrt(radicand)

	x := m.X*b - m.Y*c - m.Z*axn*d
	y := m.Y*d - m.Z*ayn
	if !finite(x) || !finite(y) {
		return Unavailable()
	}

	return Degrees(normalize(math.Atan2(y, x) * 180.0 / math.Pi))
}

// normalize folds an angle in [-180, 180] onto (-180, 180].
func normalize(deg float64) float64 {
	if deg <= -180 {
		deg += 360
	}
	return deg
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
