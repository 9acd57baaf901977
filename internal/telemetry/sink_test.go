// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogSink_AppendsAndMirrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saillog.log")
	if err := os.WriteFile(path, []byte("previous run\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var console bytes.Buffer
	s, err := OpenLogSink(path, &console)
	if err != nil {
		t.Fatalf("OpenLogSink: %v", err)
	}
	rec := sampleRecord()
	for i := 0; i < 2; i++ {
		if err := s.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := rec.Line() + "\n"
	if want := "previous run\n" + line + line; string(data) != want {
		t.Fatalf("file=%q want %q", data, want)
	}
	if console.String() != line+line {
		t.Fatalf("console=%q", console.String())
	}
}

func TestLogSink_NoMirror(t *testing.T) {
	s, err := OpenLogSink(filepath.Join(t.TempDir(), "saillog.log"), nil)
	if err != nil {
		t.Fatalf("OpenLogSink: %v", err)
	}
	defer s.Close()
	if err := s.Write(sampleRecord()); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestLogSink_WriteAfterClose(t *testing.T) {
	s, err := OpenLogSink(filepath.Join(t.TempDir(), "saillog.log"), nil)
	if err != nil {
		t.Fatalf("OpenLogSink: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Write(sampleRecord()); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestOpenLogSink_BadPath(t *testing.T) {
	if _, err := OpenLogSink(filepath.Join(t.TempDir(), "missing", "saillog.log"), nil); err == nil {
		t.Fatalf("expected error")
	}
}

type recordingSink struct {
	got    []Record
	err    error
	closed bool
}

func (s *recordingSink) Write(rec Record) error {
	s.got = append(s.got, rec)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestMultiSink_WritesAllAndJoinsErrors(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	ok := &recordingSink{}
	m := MultiSink{failing, ok}

	err := m.Write(sampleRecord())
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("err=%v", err)
	}
	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Fatalf("writes=%d,%d want 1,1", len(failing.got), len(ok.got))
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !failing.closed || !ok.closed {
		t.Fatalf("closed=%v,%v", failing.closed, ok.closed)
	}
}
