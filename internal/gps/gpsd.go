// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	DefaultGPSDAddr = "127.0.0.1:2947"

	gpsdDialTimeout    = 2 * time.Second
	gpsdReconnectDelay = 2 * time.Second
)

type gpsdMsgBase struct {
	Class string `json:"class"`
}

type gpsdTPV struct {
	Class string   `json:"class"`
	Mode  *int     `json:"mode"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Speed *float64 `json:"speed"` // m/s
	Track *float64 `json:"track"`
}

// GPSDProvider streams TPV reports from gpsd and keeps the latest flagged
// values for Read.
type GPSDProvider struct {
	addr string
	slot latest

	dial func(ctx context.Context, addr string) (net.Conn, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGPSDProvider returns a provider for gpsd at addr (host:port).
func NewGPSDProvider(addr string) *GPSDProvider {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultGPSDAddr
	}
	return &GPSDProvider{addr: addr, dial: dialGPSD}
}

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: gpsdDialTimeout}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch enables JSON streaming reports.
func gpsdWatch(conn net.Conn) error {
	// scaled=true yields SI units (m/s) and degrees.
	_, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true,\"scaled\":true}\n"))
	return err
}

// Start launches the background reader. Connection failures are retried
// in the background and never returned; the provider simply has no fix.
func (p *GPSDProvider) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
	return nil
}

// Close stops the background reader and waits for it.
func (p *GPSDProvider) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

// Read implements Provider.
func (p *GPSDProvider) Read() (Report, error) {
	return p.slot.take()
}

func (p *GPSDProvider) run(ctx context.Context) {
	for {
		if err := p.session(ctx); err != nil && ctx.Err() == nil {
			log.Printf("gps: gpsd %s: %v", p.addr, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(gpsdReconnectDelay):
		}
	}
}

func (p *GPSDProvider) session(ctx context.Context) error {
	conn, err := p.dial(ctx, p.addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock the scanner on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := gpsdWatch(conn); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	log.Printf("gps: streaming from gpsd at %s", p.addr)
	return p.consume(conn)
}

// consume reads newline-delimited gpsd JSON until r fails.
func (p *GPSDProvider) consume(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rep, err := parseGPSDLine(line)
		if err != nil {
			continue
		}
		p.slot.merge(rep)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// parseGPSDLine converts a TPV message into a Report. Other classes
// (VERSION, DEVICES, WATCH, SKY) produce an empty report.
func parseGPSDLine(line string) (Report, error) {
	var base gpsdMsgBase
	if err := json.Unmarshal([]byte(line), &base); err != nil {
		return Report{}, fmt.Errorf("gpsd json parse failed: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(base.Class), "TPV") {
		return Report{}, nil
	}

	var tpv gpsdTPV
	if err := json.Unmarshal([]byte(line), &tpv); err != nil {
		return Report{}, fmt.Errorf("gpsd tpv parse failed: %w", err)
	}

	var r Report
	// mode 0/1 means no fix; lat/lon in such reports are stale.
	hasFix := tpv.Mode == nil || *tpv.Mode >= 2
	if hasFix && tpv.Lat != nil && tpv.Lon != nil {
		r.Latitude = *tpv.Lat
		r.Longitude = *tpv.Lon
		r.Set |= LatLonSet
	}
	if tpv.Speed != nil {
		r.Speed = *tpv.Speed
		r.Set |= SpeedSet
	}
	if tpv.Track != nil {
		r.Track = *tpv.Track
		r.Set |= TrackSet
	}
	return r, nil
}
