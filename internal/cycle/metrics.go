// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Unavailability sources, used as the "source" label.
const (
	SourceFore    = "fore"
	SourceMizzen  = "mizzen"
	SourceGPS     = "gps"
	SourceIMU     = "imu"
	SourceHeading = "heading"
)

// Metrics counts cycles and per-source degradations.
type Metrics struct {
	Cycles      prometheus.Counter
	Unavailable *prometheus.CounterVec
	SinkErrors  prometheus.Counter
	Duration    prometheus.Histogram
}

// NewMetrics creates the cycle metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sail_logger",
			Name:      "cycles_total",
			Help:      "Sampling cycles completed.",
		}),
		Unavailable: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sail_logger",
				Name:      "unavailable_total",
				Help:      "Cycles in which a source produced no fresh value.",
			},
			[]string{"source"},
		),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sail_logger",
			Name:      "sink_errors_total",
			Help:      "Records the sink failed to store.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sail_logger",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one sampling cycle.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
	reg.MustRegister(m.Cycles, m.Unavailable, m.SinkErrors, m.Duration)

	// Pre-create every label so the series exist from the first scrape.
	for _, s := range []string{SourceFore, SourceMizzen, SourceGPS, SourceIMU, SourceHeading} {
		m.Unavailable.WithLabelValues(s)
	}
	return m
}
