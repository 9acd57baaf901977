// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/telemetry"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest record for the cockpit display
type DisplayData struct {
	mu   sync.RWMutex
	rec  telemetry.Record
	have bool
}

func (d *DisplayData) set(rec telemetry.Record) {
	d.mu.Lock()
	d.rec = rec
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) snapshot() (telemetry.Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rec, d.have
}

func RunDisplay() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("display: MQTT_BROKER is required")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", cfg.DisplayI2CBus, err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on i2c bus %q", cfg.DisplayI2CBus)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeTelemetry(client, cfg.TopicTelemetry, "display", data.set); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		rec, have := data.snapshot()
		if err := dev.Draw(dev.Bounds(), renderTelemetry(rec, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderTelemetry lays out four 13px rows: heading, wings, position, speed.
func renderTelemetry(rec telemetry.Record, have bool) *image1bit.VerticalLSB {
	img, d := newFrame()

	if !have {
		drawLine(d, 0, 26, "Sail Logger")
		drawLine(d, 0, 39, "Waiting...")
		return img
	}

	hdg := "HDG  ---"
	if rec.Heading.Available {
		deg := rec.Heading.Degrees
		if deg < 0 {
			deg += 360
		}
		hdg = fmt.Sprintf("HDG %5.1f", deg)
	}
	drawLine(d, 0, 13, hdg)
	drawLine(d, 0, 26, fmt.Sprintf("F %s M %s", wingText(rec.Fore), wingText(rec.Mizzen)))

	latDir := "N"
	lat := rec.Fix.Latitude
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}
	lonDir := "E"
	lon := rec.Fix.Longitude
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}
	drawLine(d, 0, 39, fmt.Sprintf("%.4f%s", lat, latDir))
	drawLine(d, 0, 52, fmt.Sprintf("%.4f%s %.1fkn", lon, lonDir, rec.Fix.Speed/knotsToMS))

	return img
}

const knotsToMS = 0.514444

func renderSplash() *image1bit.VerticalLSB {
	img, d := newFrame()
	drawLine(d, 10, 26, "Sail Logger")
	drawLine(d, 5, 43, "Hello Sailboat!")
	return img
}
