// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/relabs-tech/sail_logger/internal/telemetry"
)

func main() {
	path := flag.String("log", "/tmp/saillog.log", "record log to summarize")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		log.Fatalf("failed to stat log: %v", err)
	}

	s, err := telemetry.Summarize(f)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	printSummary(os.Stdout, *path, uint64(st.Size()), s)
}

func printSummary(w io.Writer, path string, size uint64, s telemetry.Summary) {
	fmt.Fprintf(w, "log:       %s (%s)\n", path, humanize.Bytes(size))
	fmt.Fprintf(w, "records:   %s (%s unreadable lines)\n", humanize.Comma(int64(s.Records)), humanize.Comma(int64(s.Malformed)))
	if s.Records == 0 {
		return
	}
	fmt.Fprintf(w, "span:      %s .. %s (%v)\n",
		s.First.Format(telemetry.TimestampLayout), s.Last.Format(telemetry.TimestampLayout), s.Span())
	fmt.Fprintf(w, "fore:      %s\n", percent(s.ForeAvailable, s.Records))
	fmt.Fprintf(w, "mizzen:    %s\n", percent(s.MizzenAvailable, s.Records))
	fmt.Fprintf(w, "heading:   %s\n", percent(s.HeadingAvailable, s.Records))
	fmt.Fprintf(w, "distance:  %s nm (%.2f km)\n", humanize.FormatFloat("#,###.##", s.DistanceKm/1.852), s.DistanceKm)
	fmt.Fprintf(w, "max speed: %.2f m/s\n", s.MaxSpeed)
}

func percent(n, total int) string {
	return fmt.Sprintf("%5.1f%% available", 100*float64(n)/float64(total))
}
