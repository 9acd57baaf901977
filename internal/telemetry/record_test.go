// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/sail_logger/internal/gps"
	"github.com/relabs-tech/sail_logger/internal/orientation"
	"github.com/relabs-tech/sail_logger/internal/wing"
)

func sampleRecord() Record {
	return Record{
		Timestamp: time.Date(2026, 6, 1, 12, 30, 45, 123_000_000, time.UTC),
		Fore:      wing.Value("12.5"),
		Mizzen:    wing.Unavailable(),
		Heading:   orientation.Degrees(90),
		Fix:       gps.Fix{Latitude: 51.5, Longitude: -0.7, Speed: 3.2, Track: 231.8},
	}
}

func TestRecordLine(t *testing.T) {
	got := sampleRecord().Line()
	want := "2026-06-01 12:30:45.123,12.5,,90.000000,51.500000,-0.700000,3.200000,231.800000"
	if got != want {
		t.Fatalf("Line()=%q\nwant    %q", got, want)
	}
	if n := strings.Count(got, ","); n != strings.Count(Header, ",") {
		t.Fatalf("line has %d separators, header has %d", n, strings.Count(Header, ","))
	}
}

func TestRecordLine_UnavailableHeadingAndZeroFix(t *testing.T) {
	rec := Record{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fore:      wing.Unavailable(),
		Mizzen:    wing.Unavailable(),
		Heading:   orientation.Unavailable(),
	}
	want := "2026-01-02 03:04:05.000,,,,0.000000,0.000000,0.000000,0.000000"
	if got := rec.Line(); got != want {
		t.Fatalf("Line()=%q want %q", got, want)
	}
}

func TestRecordLine_ConvertsToUTC(t *testing.T) {
	rec := sampleRecord()
	rec.Timestamp = rec.Timestamp.In(time.FixedZone("CEST", 2*3600))
	if got := rec.Line(); !strings.HasPrefix(got, "2026-06-01 12:30:45.123,") {
		t.Fatalf("Line()=%q", got)
	}
}

func TestRecordLine_SanitizesWingText(t *testing.T) {
	rec := sampleRecord()
	rec.Fore = wing.Value("12,5")
	rec.Mizzen = wing.Value("a\r\nb")
	got := rec.Line()
	if !strings.Contains(got, ",12 5,a  b,") {
		t.Fatalf("Line()=%q", got)
	}
	if _, err := ParseLine(got); err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
}

func TestParseLine_InvertsLine(t *testing.T) {
	want := sampleRecord()
	got, err := ParseLine(want.Line() + "\n")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("timestamp=%v want %v", got.Timestamp, want.Timestamp)
	}
	if got.Fore != want.Fore || got.Mizzen != want.Mizzen || got.Heading != want.Heading || got.Fix != want.Fix {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"Hello Sailboat!",
		"2026-06-01 12:30:45.123,1,2,3,4,5,6",
		"yesterday,1,2,3,4,5,6,7",
		"2026-06-01 12:30:45.123,1,2,north,4,5,6,7",
		"2026-06-01 12:30:45.123,1,2,3,,5,6,7",
	} {
		if _, err := ParseLine(line); !errors.Is(err, ErrMalformedLine) {
			t.Fatalf("ParseLine(%q) err=%v want ErrMalformedLine", line, err)
		}
	}
}
