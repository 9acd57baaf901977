// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/sail_logger/internal/gps"
	"github.com/relabs-tech/sail_logger/internal/orientation"
	"github.com/relabs-tech/sail_logger/internal/wing"
)

// TimestampLayout is the record timestamp format, always UTC.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Header names the columns of a record line, in order.
const Header = "timestamp,fore,mizzen,heading,latitude,longitude,speed,track"

const fieldCount = 8

// ErrMalformedLine is returned by ParseLine for lines that are not records.
var ErrMalformedLine = errors.New("telemetry: malformed record line")

// Record is the output of one sampling cycle.
type Record struct {
	Timestamp time.Time           `json:"timestamp"`
	Fore      wing.Reading        `json:"fore"`
	Mizzen    wing.Reading        `json:"mizzen"`
	Heading   orientation.Heading `json:"heading"`
	Fix       gps.Fix             `json:"fix"`
}

// Line renders the record as one log line without the trailing newline.
// Unavailable fields are empty columns.
func (r Record) Line() string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(r.Timestamp.UTC().Format(TimestampLayout))
	b.WriteByte(',')
	b.WriteString(wingField(r.Fore))
	b.WriteByte(',')
	b.WriteString(wingField(r.Mizzen))
	b.WriteByte(',')
	if r.Heading.Available {
		b.WriteString(formatNumber(r.Heading.Degrees))
	}
	for _, v := range []float64{r.Fix.Latitude, r.Fix.Longitude, r.Fix.Speed, r.Fix.Track} {
		b.WriteByte(',')
		b.WriteString(formatNumber(v))
	}
	return b.String()
}

// wingField keeps a sensor payload on its own column. Separators inside the
// payload would shift every following column, so they become spaces.
func wingField(r wing.Reading) string {
	if !r.Available {
		return ""
	}
	return strings.Map(func(c rune) rune {
		switch c {
		case ',', '\n', '\r':
			return ' '
		}
		return c
	}, r.Text)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// ParseLine is the inverse of Record.Line. An empty wing column parses as
// Unavailable.
func ParseLine(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformedLine, len(fields), fieldCount)
	}

	ts, err := time.ParseInLocation(TimestampLayout, fields[0], time.UTC)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedLine, err)
	}

	rec := Record{
		Timestamp: ts,
		Fore:      parseWing(fields[1]),
		Mizzen:    parseWing(fields[2]),
		Heading:   orientation.Unavailable(),
	}
	if fields[3] != "" {
		deg, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: heading: %v", ErrMalformedLine, err)
		}
		rec.Heading = orientation.Degrees(deg)
	}

	nums := make([]float64, 4)
	for i, name := range []string{"latitude", "longitude", "speed", "track"} {
		v, err := strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformedLine, name, err)
		}
		nums[i] = v
	}
	rec.Fix = gps.Fix{Latitude: nums[0], Longitude: nums[1], Speed: nums[2], Track: nums[3]}
	return rec, nil
}

func parseWing(s string) wing.Reading {
	if s == "" {
		return wing.Unavailable()
	}
	return wing.Value(s)
}
