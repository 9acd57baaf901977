// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sail_logger/internal/gps"
	"github.com/relabs-tech/sail_logger/internal/orientation"
	"github.com/relabs-tech/sail_logger/internal/telemetry"
	"github.com/relabs-tech/sail_logger/internal/wing"
)

func testRecord(heading float64) telemetry.Record {
	return telemetry.Record{
		Timestamp: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Fore:      wing.Value("12.5"),
		Mizzen:    wing.Unavailable(),
		Heading:   orientation.Degrees(heading),
		Fix:       gps.Fix{Latitude: 51.5, Longitude: -0.7, Speed: 3, Track: 90},
	}
}

func TestTelemetryHub_Latest(t *testing.T) {
	hub := newTelemetryHub()
	srv := httptest.NewServer(hub.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/telemetry")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503 before first record", resp.StatusCode)
	}

	hub.update(testRecord(45))

	resp, err = http.Get(srv.URL + "/api/telemetry")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}
	var got telemetry.Record
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Heading != orientation.Degrees(45) || got.Fore != wing.Value("12.5") || got.Fix.Latitude != 51.5 {
		t.Fatalf("record=%+v", got)
	}
}

func TestTelemetryHub_WebsocketStream(t *testing.T) {
	hub := newTelemetryHub()
	hub.update(testRecord(10))
	srv := httptest.NewServer(hub.routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first telemetry.Record
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if first.Heading != orientation.Degrees(10) {
		t.Fatalf("first heading=%+v want 10", first.Heading)
	}

	// The client is registered once the latest record was written.
	hub.update(testRecord(20))
	var second telemetry.Record
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if second.Heading != orientation.Degrees(20) {
		t.Fatalf("second heading=%+v want 20", second.Heading)
	}
}

func TestTelemetryHub_SlowClientDoesNotBlockLatest(t *testing.T) {
	hub := newTelemetryHub()
	hub.update(testRecord(10))
	srv := httptest.NewServer(hub.routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first telemetry.Record
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read latest: %v", err)
	}

	hub.mu.Lock()
	var slow *wsClient
	for c := range hub.clients {
		slow = c
	}
	hub.mu.Unlock()
	if slow == nil {
		t.Fatalf("client not registered")
	}

	// Hold the client's write lock as if a send were stuck on the socket.
	slow.mu.Lock()
	done := make(chan struct{})
	go func() {
		hub.update(testRecord(20))
		close(done)
	}()

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(time.Second)
	for {
		resp, err := client.Get(srv.URL + "/api/telemetry")
		if err != nil {
			slow.mu.Unlock()
			t.Fatalf("GET during broadcast: %v", err)
		}
		var got telemetry.Record
		err = json.NewDecoder(resp.Body).Decode(&got)
		resp.Body.Close()
		if err == nil && got.Heading == orientation.Degrees(20) {
			break
		}
		if time.Now().After(deadline) {
			slow.mu.Unlock()
			t.Fatalf("latest record=%+v err=%v, want heading 20", got, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	select {
	case <-done:
		slow.mu.Unlock()
		t.Fatalf("update returned while the client write was held")
	default:
	}

	slow.mu.Unlock()
	<-done
	var second telemetry.Record
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if second.Heading != orientation.Degrees(20) {
		t.Fatalf("second heading=%+v want 20", second.Heading)
	}
}
