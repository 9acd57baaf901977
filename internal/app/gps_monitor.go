// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/gps"
)

// RunGPSMonitor polls the configured position provider once per second and
// prints the carried-over fix.
func RunGPSMonitor(ctx context.Context, out io.Writer) error {
	provider, err := newPositionProvider(config.Get())
	if err != nil {
		return err
	}
	if err := provider.Start(ctx); err != nil {
		return fmt.Errorf("gps: start: %w", err)
	}
	defer provider.Close()

	src := gps.NewSource(provider)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fix, err := src.PollErr()
			fmt.Fprintln(out, fixLine(fix, err))
		}
	}
}

func fixLine(fix gps.Fix, err error) string {
	status := "new"
	switch {
	case errors.Is(err, gps.ErrNoFix):
		status = "stale"
	case err != nil:
		status = "error: " + err.Error()
	}
	return fmt.Sprintf("[GPS ] lat=%.6f lon=%.6f speed=%.2fm/s track=%.1f° (%s)",
		fix.Latitude, fix.Longitude, fix.Speed, fix.Track, status)
}
