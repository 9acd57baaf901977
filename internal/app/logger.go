// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/cycle"
	"github.com/relabs-tech/sail_logger/internal/gps"
	"github.com/relabs-tech/sail_logger/internal/sensors"
	"github.com/relabs-tech/sail_logger/internal/telemetry"
	"github.com/relabs-tech/sail_logger/internal/wing"
)

// positionProvider is a gps.Provider with a background reader.
type positionProvider interface {
	gps.Provider
	Start(ctx context.Context) error
	Close() error
}

type cycleRunner interface {
	RunCycle() telemetry.Record
}

// RunLogger initializes every source and sink from the global config, then
// runs sampling cycles until ctx is cancelled. Initialization failures are
// returned before the first cycle.
func RunLogger(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("logger: config not initialized")
	}

	fmt.Println("Hello Sailboat!")

	imuSrc, err := sensors.NewIMUSource(cfg)
	if err != nil {
		return err
	}
	defer imuSrc.Close()

	provider, err := newPositionProvider(cfg)
	if err != nil {
		return err
	}
	if err := provider.Start(ctx); err != nil {
		return fmt.Errorf("gps: start: %w", err)
	}
	defer provider.Close()

	var mqttClient mqtt.Client
	if cfg.MQTTBroker != "" {
		mqttClient, err = connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDLogger)
		if err != nil {
			return err
		}
		defer mqttClient.Disconnect(250)
		log.Printf("logger: publishing records to %s on %s", cfg.TopicTelemetry, cfg.MQTTBroker)
	}

	sinks, err := openSinks(cfg, mqttClient)
	if err != nil {
		return err
	}
	defer sinks.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	metrics := cycle.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg)
		defer srv.Close()
	}

	fore := wing.NewClient(cycle.SourceFore, cfg.ForeEndpoint, cfg.RequestTimeout())
	mizzen := wing.NewClient(cycle.SourceMizzen, cfg.MizzenEndpoint, cfg.RequestTimeout())
	log.Printf("logger: fore=%s mizzen=%s timeout=%v interval=%v",
		fore.Endpoint(), mizzen.Endpoint(), cfg.RequestTimeout(), cfg.CycleInterval())

	o := cycle.New(fore, mizzen, gps.NewSource(provider), imuSrc, sinks, cycle.WithMetrics(metrics))

	// With the console mirror off, a dot per cycle shows the loop is alive.
	var progress io.Writer
	if !cfg.ConsoleMirror {
		progress = os.Stdout
	}
	n := runCycles(ctx, o, cfg.CycleInterval(), progress)
	log.Printf("logger: stopped after %s cycles", humanize.Comma(int64(n)))
	return nil
}

func newPositionProvider(cfg *config.Config) (positionProvider, error) {
	switch cfg.GPSSource {
	case config.GPSSourceGPSD:
		log.Printf("gps: using gpsd at %s", cfg.GPSDAddr)
		return gps.NewGPSDProvider(cfg.GPSDAddr), nil
	case config.GPSSourceNMEA:
		log.Printf("gps: using NMEA on %s @ %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)
		return gps.NewNMEAProvider(cfg.GPSSerialPort, cfg.GPSBaudRate), nil
	default:
		return nil, fmt.Errorf("gps: unknown source %q", cfg.GPSSource)
	}
}

// openSinks opens the log file and every optional sink. client may be nil.
func openSinks(cfg *config.Config, client mqtt.Client) (telemetry.MultiSink, error) {
	var mirror io.Writer
	if cfg.ConsoleMirror {
		mirror = os.Stdout
	}
	logSink, err := telemetry.OpenLogSink(cfg.LogFile, mirror)
	if err != nil {
		return nil, err
	}
	sinks := telemetry.MultiSink{logSink}

	if cfg.SQLitePath != "" {
		db, err := telemetry.OpenSQLiteSink(cfg.SQLitePath)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		log.Printf("logger: storing records in %s", cfg.SQLitePath)
		sinks = append(sinks, db)
	}

	if client != nil {
		sinks = append(sinks, telemetry.NewMQTTSink(client, cfg.TopicTelemetry, telemetry.DefaultPublishWait))
	}
	return sinks, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("metrics: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: server error: %v", err)
		}
	}()
	return srv
}

// runCycles runs one cycle, waits interval, and repeats until ctx is done.
// The delay is measured from the end of a cycle, so a slow cycle pushes the
// next one back instead of overlapping it.
func runCycles(ctx context.Context, r cycleRunner, interval time.Duration, progress io.Writer) int {
	n := 0
	for ctx.Err() == nil {
		r.RunCycle()
		n++
		if progress != nil {
			fmt.Fprint(progress, ".")
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return n
		case <-t.C:
		}
	}
	return n
}
