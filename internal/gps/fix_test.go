// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"testing"
)

// scripted replays one Read result per call, then reports no fix.
type scripted struct {
	steps []step
	calls int
}

type step struct {
	r   Report
	err error
}

func (s *scripted) Read() (Report, error) {
	if s.calls >= len(s.steps) {
		s.calls++
		return Report{}, ErrNoFix
	}
	st := s.steps[s.calls]
	s.calls++
	return st.r, st.err
}

func TestSource_StartsAtZero(t *testing.T) {
	src := NewSource(&scripted{})
	if got := src.Poll(); got != (Fix{}) {
		t.Fatalf("fix=%+v want zero", got)
	}
}

func TestSource_PartialUpdatesCarryOver(t *testing.T) {
	p := &scripted{steps: []step{
		{r: Report{Latitude: 48.1173, Longitude: 11.5167, Speed: 99, Track: 99, Set: LatLonSet}},
		{r: Report{Latitude: -1, Longitude: -1, Speed: 11.5, Set: SpeedSet}},
	}}
	src := NewSource(p)

	first := src.Poll()
	if first.Latitude != 48.1173 || first.Longitude != 11.5167 {
		t.Fatalf("cycle 1 lat/lon=%v/%v", first.Latitude, first.Longitude)
	}
	if first.Speed != 0 || first.Track != 0 {
		t.Fatalf("cycle 1 applied unflagged fields: %+v", first)
	}

	second := src.Poll()
	want := Fix{Latitude: 48.1173, Longitude: 11.5167, Speed: 11.5, Track: 0}
	if second != want {
		t.Fatalf("cycle 2 fix=%+v want %+v", second, want)
	}
}

func TestSource_NoFixKeepsPrevious(t *testing.T) {
	p := &scripted{steps: []step{
		{r: Report{Latitude: 1, Longitude: 2, Speed: 3, Track: 4, Set: LatLonSet | SpeedSet | TrackSet}},
	}}
	src := NewSource(p)
	want := src.Poll()

	got, err := src.PollErr()
	if !errors.Is(err, ErrNoFix) {
		t.Fatalf("err=%v want ErrNoFix", err)
	}
	if got != want {
		t.Fatalf("fix=%+v want %+v", got, want)
	}
}

func TestSource_ProviderErrorKeepsPrevious(t *testing.T) {
	boom := errors.New("boom")
	p := &scripted{steps: []step{
		{r: Report{Track: 270, Set: TrackSet}},
		{r: Report{Track: 1, Set: TrackSet}, err: boom},
	}}
	src := NewSource(p)
	src.Poll()

	got, err := src.PollErr()
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if got.Track != 270 {
		t.Fatalf("track=%v want 270", got.Track)
	}
	if src.Last() != got {
		t.Fatalf("Last()=%+v want %+v", src.Last(), got)
	}
}

func TestFix_ApplyGroups(t *testing.T) {
	base := Fix{Latitude: 1, Longitude: 2, Speed: 3, Track: 4}
	r := Report{Latitude: 10, Longitude: 20, Speed: 30, Track: 40}

	cases := []struct {
		set  Flags
		want Fix
	}{
		{0, base},
		{LatLonSet, Fix{10, 20, 3, 4}},
		{SpeedSet, Fix{1, 2, 30, 4}},
		{TrackSet, Fix{1, 2, 3, 40}},
		{SpeedSet | TrackSet, Fix{1, 2, 30, 40}},
		{LatLonSet | SpeedSet | TrackSet, Fix{10, 20, 30, 40}},
	}
	for _, tc := range cases {
		r.Set = tc.set
		if got := base.Apply(r); got != tc.want {
			t.Fatalf("set=%03b got %+v want %+v", tc.set, got, tc.want)
		}
	}
}

func TestLatest_MergeAndTake(t *testing.T) {
	var l latest
	if _, err := l.take(); !errors.Is(err, ErrNoFix) {
		t.Fatalf("empty slot err=%v", err)
	}

	l.merge(Report{Latitude: 1, Longitude: 2, Set: LatLonSet})
	l.merge(Report{Speed: 5, Set: SpeedSet})
	l.merge(Report{Latitude: 3, Longitude: 4, Set: LatLonSet})
	l.merge(Report{Track: 99}) // nothing flagged

	r, err := l.take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if r.Set != LatLonSet|SpeedSet {
		t.Fatalf("set=%03b", r.Set)
	}
	if r.Latitude != 3 || r.Longitude != 4 || r.Speed != 5 || r.Track != 0 {
		t.Fatalf("report=%+v", r)
	}
	if _, err := l.take(); !errors.Is(err, ErrNoFix) {
		t.Fatalf("second take err=%v", err)
	}
}
