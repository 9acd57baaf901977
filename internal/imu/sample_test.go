// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"strings"
	"testing"
)

type recordingReader struct {
	calls []string
	errs  map[string]error
}

func (r *recordingReader) read(name string, v Vector) (Vector, error) {
	r.calls = append(r.calls, name)
	if err := r.errs[name]; err != nil {
		return Vector{}, err
	}
	return v, nil
}

func (r *recordingReader) ReadAccel() (Vector, error) { return r.read("accel", Vector{Z: 1}) }
func (r *recordingReader) ReadGyro() (Vector, error)  { return r.read("gyro", Vector{X: 2}) }
func (r *recordingReader) ReadMag() (Vector, error)   { return r.read("mag", Vector{Y: 3}) }

func TestReadSample_ReadsGyroEvenAfterAccelFailure(t *testing.T) {
	r := &recordingReader{errs: map[string]error{"accel": errors.New("nack")}}
	if _, err := ReadSample(r); err == nil {
		t.Fatalf("expected error")
	}
	if got := strings.Join(r.calls, ","); got != "accel,gyro,mag" {
		t.Fatalf("calls=%s want accel,gyro,mag", got)
	}
}

func TestReadSample_JoinsErrors(t *testing.T) {
	errGyro := errors.New("gyro nack")
	errMag := errors.New("mag overflow")
	r := &recordingReader{errs: map[string]error{"gyro": errGyro, "mag": errMag}}
	s, err := ReadSample(r)
	if !errors.Is(err, errGyro) || !errors.Is(err, errMag) {
		t.Fatalf("err=%v want both causes", err)
	}
	if s != (Sample{}) {
		t.Fatalf("sample=%+v want zero on failure", s)
	}
}

func TestReadSample_Success(t *testing.T) {
	s, err := ReadSample(&recordingReader{})
	if err != nil {
		t.Fatalf("ReadSample: %v", err)
	}
	want := Sample{Accel: Vector{Z: 1}, Gyro: Vector{X: 2}, Mag: Vector{Y: 3}}
	if s != want {
		t.Fatalf("sample=%+v want %+v", s, want)
	}
}
