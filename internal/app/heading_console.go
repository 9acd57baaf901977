// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/imu"
	"github.com/relabs-tech/sail_logger/internal/orientation"
	"github.com/relabs-tech/sail_logger/internal/sensors"
)

// RunHeadingConsole prints the raw IMU vectors and the tilt-compensated
// heading of the configured IMU, for checking a compass installation at
// the dock without wing sensors or GPS.
func RunHeadingConsole(ctx context.Context, out io.Writer) error {
	src, err := sensors.NewIMUSource(config.Get())
	if err != nil {
		return err
	}
	defer src.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fmt.Fprintln(out, headingLine(src))
		}
	}
}

func headingLine(r imu.Reader) string {
	s, err := imu.ReadSample(r)
	if err != nil {
		return fmt.Sprintf("IMU read error: %v", err)
	}
	h := orientation.TiltCompensatedHeading(s)
	hdg := "unavailable"
	if h.Available {
		hdg = fmt.Sprintf("%7.2f", h.Degrees)
	}
	return fmt.Sprintf(
		"A=(%6.3f %6.3f %6.3f)g  M=(%7.2f %7.2f %7.2f)uT  HDG=%s",
		s.Accel.X, s.Accel.Y, s.Accel.Z, s.Mag.X, s.Mag.Y, s.Mag.Z, hdg,
	)
}
