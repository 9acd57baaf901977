// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"time"

	geo "github.com/kellydunn/golang-geo"
)

// Summary describes a recorded log.
type Summary struct {
	Records   int
	Malformed int

	First time.Time
	Last  time.Time

	ForeAvailable    int
	MizzenAvailable  int
	HeadingAvailable int

	DistanceKm float64 // great-circle track length over distinct positions
	MaxSpeed   float64 // m/s
}

// Span is the time between the first and the last record.
func (s Summary) Span() time.Duration {
	if s.Records == 0 {
		return 0
	}
	return s.Last.Sub(s.First)
}

// Summarize reads record lines from r. Lines that are not records are
// counted and skipped.
func Summarize(r io.Reader) (Summary, error) {
	var s Summary
	var prev *geo.Point

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			s.Malformed++
			continue
		}

		if s.Records == 0 {
			s.First = rec.Timestamp
		}
		s.Last = rec.Timestamp
		s.Records++

		if rec.Fore.Available {
			s.ForeAvailable++
		}
		if rec.Mizzen.Available {
			s.MizzenAvailable++
		}
		if rec.Heading.Available {
			s.HeadingAvailable++
		}
		if rec.Fix.Speed > s.MaxSpeed {
			s.MaxSpeed = rec.Fix.Speed
		}

		// 0,0 means no position has been observed yet.
		if rec.Fix.Latitude == 0 && rec.Fix.Longitude == 0 {
			continue
		}
		p := geo.NewPoint(rec.Fix.Latitude, rec.Fix.Longitude)
		if prev != nil && (prev.Lat() != p.Lat() || prev.Lng() != p.Lng()) {
			s.DistanceKm += prev.GreatCircleDistance(p)
		}
		prev = p
	}
	if err := sc.Err(); err != nil {
		return s, fmt.Errorf("telemetry: read log: %w", err)
	}
	return s, nil
}
