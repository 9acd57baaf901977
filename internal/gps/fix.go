// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"sync"
)

// ErrNoFix is returned by a Provider that has nothing new since the last Read.
var ErrNoFix = errors.New("gps: no new fix")

// Flags marks which groups of a Report were newly set by the receiver.
type Flags uint8

const (
	LatLonSet Flags = 1 << iota
	SpeedSet
	TrackSet
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Report is one observation from a position provider. Only the groups
// named in Set carry fresh values.
type Report struct {
	Latitude  float64 // decimal degrees
	Longitude float64 // decimal degrees
	Speed     float64 // speed over ground, m/s
	Track     float64 // course over ground, degrees true
	Set       Flags
}

// Provider yields the latest report. Read must not block on the receiver;
// it returns ErrNoFix when nothing arrived since the previous call.
type Provider interface {
	Read() (Report, error)
}

// Fix represents the position state written to each telemetry record.
// Every field always holds a value: 0 until first observed, then the most
// recent observation.
type Fix struct {
	Latitude  float64 `json:"lat"`   // decimal degrees
	Longitude float64 `json:"lon"`   // decimal degrees
	Speed     float64 `json:"speed"` // speed over ground, m/s
	Track     float64 `json:"track"` // course over ground
}

// Apply returns f updated with the groups that r marks as set.
func (f Fix) Apply(r Report) Fix {
	if r.Set.Has(LatLonSet) {
		f.Latitude = r.Latitude
		f.Longitude = r.Longitude
	}
	if r.Set.Has(SpeedSet) {
		f.Speed = r.Speed
	}
	if r.Set.Has(TrackSet) {
		f.Track = r.Track
	}
	return f
}

// Source owns the carried-over fix. Only Poll mutates it.
type Source struct {
	provider Provider

	mu  sync.Mutex
	fix Fix
}

// NewSource wraps a provider with a zero initial fix.
func NewSource(p Provider) *Source {
	return &Source{provider: p}
}

// Poll reads one report and folds it into the carried-over fix. When the
// provider has nothing new (or fails) the previous fix is returned as is.
func (s *Source) Poll() Fix {
	f, _ := s.PollErr()
	return f
}

// PollErr is Poll with the provider error, ErrNoFix included.
func (s *Source) PollErr() (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.provider.Read()
	if err != nil {
		return s.fix, err
	}
	s.fix = s.fix.Apply(r)
	return s.fix, nil
}

// Last returns the current fix without polling.
func (s *Source) Last() Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fix
}

// latest is a single-slot report buffer shared between a background reader
// and Read. Successive updates merge so that no flagged group is lost
// between two cycles.
type latest struct {
	mu      sync.Mutex
	pending Report
}

func (l *latest) merge(r Report) {
	if r.Set == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.Set.Has(LatLonSet) {
		l.pending.Latitude = r.Latitude
		l.pending.Longitude = r.Longitude
	}
	if r.Set.Has(SpeedSet) {
		l.pending.Speed = r.Speed
	}
	if r.Set.Has(TrackSet) {
		l.pending.Track = r.Track
	}
	l.pending.Set |= r.Set
}

func (l *latest) take() (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending.Set == 0 {
		return Report{}, ErrNoFix
	}
	r := l.pending
	l.pending = Report{}
	return r, nil
}
