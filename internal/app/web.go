// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sail_logger/internal/config"
	"github.com/relabs-tech/sail_logger/internal/telemetry"
)

const wsWriteWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins on the boat network
	},
}

// wsClient serializes writes to one websocket connection.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) send(rec telemetry.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(rec)
}

func (c *wsClient) sendLocked(rec telemetry.Record) error {
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(rec)
}

// telemetryHub keeps the latest record and pushes every new one to the
// connected websocket clients. mu guards state only; socket writes happen
// outside it so a slow client cannot stall /api/telemetry.
type telemetryHub struct {
	mu      sync.Mutex
	last    telemetry.Record
	have    bool
	clients map[*wsClient]struct{}
}

func newTelemetryHub() *telemetryHub {
	return &telemetryHub{clients: make(map[*wsClient]struct{})}
}

// update stores rec and broadcasts it. Clients that cannot keep up are
// dropped.
func (h *telemetryHub) update(rec telemetry.Record) {
	h.mu.Lock()
	h.last = rec
	h.have = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(rec); err != nil {
			log.Printf("web: dropping websocket client %s: %v", c.conn.RemoteAddr(), err)
			h.remove(c)
		}
	}
}

func (h *telemetryHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

func (h *telemetryHub) latest() (telemetry.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.have
}

func (h *telemetryHub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/telemetry", h.handleLatest)
	mux.HandleFunc("/ws", h.handleWS)
	return mux
}

func (h *telemetryHub) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (h *telemetryHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	// The client write lock is taken before the hub lock is released, so a
	// concurrent broadcast cannot overtake the initial record.
	c := &wsClient{conn: conn}
	h.mu.Lock()
	last, have := h.last, h.have
	h.clients[c] = struct{}{}
	c.mu.Lock()
	h.mu.Unlock()
	if have {
		if err := c.sendLocked(last); err != nil {
			c.mu.Unlock()
			h.remove(c)
			return
		}
	}
	c.mu.Unlock()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}
	h.remove(c)
}

// RunWeb serves the latest telemetry record received over MQTT as JSON and
// as a websocket stream, plus static files from ./web.
func RunWeb() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web: MQTT_BROKER is required")
	}

	hub := newTelemetryHub()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeTelemetry(client, cfg.TopicTelemetry, "web", hub.update); err != nil {
		return err
	}

	mux := hub.routes()
	mux.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
