// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishWait bounds how long a cycle waits for the broker.
const DefaultPublishWait = 100 * time.Millisecond

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes each record as retained JSON so late subscribers see
// the latest state immediately.
type MQTTSink struct {
	client Publisher
	topic  string
	wait   time.Duration
}

func NewMQTTSink(client Publisher, topic string, wait time.Duration) *MQTTSink {
	if wait <= 0 {
		wait = DefaultPublishWait
	}
	return &MQTTSink{client: client, topic: topic, wait: wait}
}

func (s *MQTTSink) Write(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("telemetry: marshal record: %w", err)
	}
	token := s.client.Publish(s.topic, 0, true, payload)
	if !token.WaitTimeout(s.wait) {
		return fmt.Errorf("telemetry: publish to %s timed out after %v", s.topic, s.wait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: publish to %s: %w", s.topic, err)
	}
	return nil
}
