// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/telemetry"
	"github.com/relabs-tech/sail_logger/internal/wing"
)

func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is required")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	err = subscribeTelemetry(client, cfg.TopicTelemetry, "console", func(rec telemetry.Record) {
		fmt.Println(formatConsoleLine(rec))
	})
	if err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatConsoleLine(rec telemetry.Record) string {
	hdg := "  ---.-"
	if rec.Heading.Available {
		hdg = fmt.Sprintf("%7.1f", rec.Heading.Degrees)
	}
	return fmt.Sprintf(
		"[SAIL] %s  HDG=%s  FORE=%-8s MIZ=%-8s lat=%.6f lon=%.6f sog=%.2fm/s cog=%.1f°",
		rec.Timestamp.UTC().Format(telemetry.TimestampLayout),
		hdg, wingText(rec.Fore), wingText(rec.Mizzen),
		rec.Fix.Latitude, rec.Fix.Longitude, rec.Fix.Speed, rec.Fix.Track,
	)
}

func wingText(r wing.Reading) string {
	if !r.Available {
		return "--"
	}
	return r.Text
}
