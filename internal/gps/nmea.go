// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

const knotsToMS = 0.514444

// Raw field positions, after the sentence type.
const (
	rmcSpeedField     = 6
	rmcCourseField    = 7
	vtgTrueTrackField = 0
	vtgKnotsField     = 4

	vtgModeNoFix = "N"
)

// NMEAProvider reads NMEA 0183 sentences straight from a receiver on a
// serial port, for boats without gpsd.
type NMEAProvider struct {
	portName string
	baud     uint
	slot     latest

	open func() (io.ReadWriteCloser, error)

	mu     sync.Mutex
	port   io.Closer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNMEAProvider returns a provider for the given serial port.
// NOTE: adjust portName to match your setup: /dev/serial0, /dev/ttyAMA0, /dev/ttyUSB0, etc.
func NewNMEAProvider(portName string, baud int) *NMEAProvider {
	if baud <= 0 {
		baud = 9600
	}
	p := &NMEAProvider{portName: portName, baud: uint(baud)}
	p.open = func() (io.ReadWriteCloser, error) {
		return serial.Open(serial.OpenOptions{
			PortName:              p.portName,
			BaudRate:              p.baud,
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		})
	}
	return p
}

// Start opens the serial port and launches the sentence reader.
// Failing to open the port is an initialization failure.
func (p *NMEAProvider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	port, err := p.open()
	if err != nil {
		return fmt.Errorf("gps: open serial %s: %w", p.portName, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", p.portName, p.baud)

	ctx, p.cancel = context.WithCancel(ctx)
	p.port = port

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		stop := context.AfterFunc(ctx, func() { _ = port.Close() })
		defer stop()
		if err := p.consume(port); err != nil && ctx.Err() == nil {
			log.Printf("gps: serial read error: %v", err)
		}
	}()
	return nil
}

// Close stops the reader and closes the port.
func (p *NMEAProvider) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	port := p.port
	p.cancel, p.port = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if port != nil {
		err = port.Close()
	}
	p.wg.Wait()
	return err
}

// Read implements Provider.
func (p *NMEAProvider) Read() (Report, error) {
	return p.slot.take()
}

func (p *NMEAProvider) consume(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			p.ingest(line)
		}
		if err != nil {
			return err
		}
	}
}

// ingest parses one sentence and merges whatever it flags.
func (p *NMEAProvider) ingest(line string) {
	line = strings.TrimSpace(line)
	// NMEA sentences usually start with '$'
	if line == "" || !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		return
	}
	p.slot.merge(reportFromSentence(sentence))
}

func reportFromSentence(sentence nmea.Sentence) Report {
	var r Report
	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return r
		}
		r.Latitude, r.Longitude = m.Latitude, m.Longitude
		r.Set = LatLonSet
		// Empty fields parse as 0; only fields the receiver filled are fresh.
		if hasField(m.Fields, rmcSpeedField) {
			r.Speed = m.Speed * knotsToMS
			r.Set |= SpeedSet
		}
		if hasField(m.Fields, rmcCourseField) {
			r.Track = m.Course
			r.Set |= TrackSet
		}

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid || m.FixQuality == "" {
			return r
		}
		r.Latitude, r.Longitude = m.Latitude, m.Longitude
		r.Set = LatLonSet

	case nmea.TypeVTG:
		m := sentence.(nmea.VTG)
		if m.FFAMode == vtgModeNoFix {
			return r
		}
		if hasField(m.Fields, vtgKnotsField) {
			r.Speed = m.GroundSpeedKnots * knotsToMS
			r.Set |= SpeedSet
		}
		if hasField(m.Fields, vtgTrueTrackField) {
			r.Track = m.TrueTrack
			r.Set |= TrackSet
		}

	default:
		// ignore other sentence types (GSA, GSV, etc.)
	}
	return r
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func hasField(fields []string, i int) bool {
	return field(fields, i) != ""
}
