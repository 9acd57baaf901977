// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/sail_logger/internal/gps"
	"github.com/relabs-tech/sail_logger/internal/imu"
	"github.com/relabs-tech/sail_logger/internal/orientation"
	"github.com/relabs-tech/sail_logger/internal/telemetry"
	"github.com/relabs-tech/sail_logger/internal/wing"
)

// WingSensor is one remotely polled wing-angle sensor. Name labels the
// sensor in logs and metrics.
type WingSensor interface {
	Name() string
	FetchErr() (wing.Reading, error)
}

// PositionSource yields the carried-over fix for the current cycle.
type PositionSource interface {
	PollErr() (gps.Fix, error)
}

// Orchestrator runs one sampling cycle at a time. It does not own a timer;
// callers decide when RunCycle is invoked.
type Orchestrator struct {
	fore     WingSensor
	mizzen   WingSensor
	position PositionSource
	imu      imu.Reader
	sink     telemetry.Sink

	metrics *Metrics
	now     func() time.Time

	mu   sync.Mutex
	down map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records cycle metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces time.Now as the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(fore, mizzen WingSensor, position PositionSource, r imu.Reader, sink telemetry.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fore:     fore,
		mizzen:   mizzen,
		position: position,
		imu:      r,
		sink:     sink,
		now:      time.Now,
		down:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunCycle samples every source once, hands the record to the sink and
// returns it. Source failures degrade individual fields; they never prevent
// the record from being produced.
func (o *Orchestrator) RunCycle() telemetry.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	rec := telemetry.Record{
		Timestamp: o.now().UTC().Truncate(time.Millisecond),
	}

	rec.Fore = o.fetchWing(o.fore)
	rec.Mizzen = o.fetchWing(o.mizzen)

	fix, err := o.position.PollErr()
	rec.Fix = fix
	if errors.Is(err, gps.ErrNoFix) {
		// Nothing new since the last cycle; the carried-over fix is current.
		err = nil
	}
	o.observe(SourceGPS, err)

	sample, err := imu.ReadSample(o.imu)
	o.observe(SourceIMU, err)
	if err != nil {
		rec.Heading = orientation.Unavailable()
	} else {
		rec.Heading = orientation.TiltCompensatedHeading(sample)
		var headingErr error
		if !rec.Heading.Available {
			headingErr = errInconsistentSample
		}
		o.observe(SourceHeading, headingErr)
	}

	if o.sink != nil {
		if err := o.sink.Write(rec); err != nil {
			log.Printf("cycle: sink write failed: %v", err)
			if o.metrics != nil {
				o.metrics.SinkErrors.Inc()
			}
		}
	}

	if o.metrics != nil {
		o.metrics.Cycles.Inc()
		o.metrics.Duration.Observe(time.Since(start).Seconds())
	}
	return rec
}

var errInconsistentSample = errors.New("sample gives no heading (zero or inconsistent acceleration)")

func (o *Orchestrator) fetchWing(s WingSensor) wing.Reading {
	r, err := s.FetchErr()
	o.observe(s.Name(), err)
	if err != nil {
		return wing.Unavailable()
	}
	return r
}

// observe counts a degraded source and logs only when a source changes
// state, so a dead sensor does not flood the log at the cycle rate.
func (o *Orchestrator) observe(source string, err error) {
	if err != nil {
		if o.metrics != nil {
			o.metrics.Unavailable.WithLabelValues(source).Inc()
		}
		if !o.down[source] {
			o.down[source] = true
			log.Printf("cycle: %s unavailable: %v", source, err)
		}
		return
	}
	if o.down[source] {
		o.down[source] = false
		log.Printf("cycle: %s recovered", source)
	}
}
