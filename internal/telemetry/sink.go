// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
)

// Sink accepts one record per cycle. Implementations must not retain rec
// beyond the call unless they copy it.
type Sink interface {
	Write(rec Record) error
}

// MultiSink writes every record to each sink in order. A failing sink does
// not stop the others.
type MultiSink []Sink

func (m MultiSink) Write(rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that can be closed.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LogSink appends record lines to a file and optionally mirrors each line
// to a console writer.
type LogSink struct {
	mu     sync.Mutex
	f      *os.File
	mirror io.Writer
}

// OpenLogSink opens path for appending, creating it if needed. mirror may
// be nil.
func OpenLogSink(path string, mirror io.Writer) (*LogSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open log file %s: %w", path, err)
	}
	if st, err := f.Stat(); err == nil {
		log.Printf("telemetry: appending to %s (%s)", path, humanize.Bytes(uint64(st.Size())))
	}
	return &LogSink{f: f, mirror: mirror}, nil
}

func (s *LogSink) Write(rec Record) error {
	line := rec.Line() + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("telemetry: log sink closed")
	}
	if _, err := io.WriteString(s.f, line); err != nil {
		return fmt.Errorf("telemetry: log write: %w", err)
	}
	if s.mirror != nil {
		// Console output is best effort.
		_, _ = io.WriteString(s.mirror, line)
	}
	return nil
}

func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
