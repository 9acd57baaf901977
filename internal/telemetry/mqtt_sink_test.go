// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}

type fakePublisher struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
	token    *fakeToken
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topic, p.qos, p.retained = topic, qos, retained
	p.payload = payload.([]byte)
	return p.token
}

func TestMQTTSink_PublishesRetainedJSON(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{done: true}}
	s := NewMQTTSink(pub, "sail/telemetry", 0)

	rec := sampleRecord()
	if err := s.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if pub.topic != "sail/telemetry" || pub.qos != 0 || !pub.retained {
		t.Fatalf("publish topic=%q qos=%d retained=%v", pub.topic, pub.qos, pub.retained)
	}

	var got Record
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !got.Timestamp.Equal(rec.Timestamp) || got.Fore != rec.Fore || got.Heading != rec.Heading || got.Fix != rec.Fix {
		t.Fatalf("payload record=%+v want %+v", got, rec)
	}
}

func TestMQTTSink_Errors(t *testing.T) {
	cases := []struct {
		name  string
		token *fakeToken
	}{
		{"timeout", &fakeToken{done: false}},
		{"broker error", &fakeToken{done: true, err: errors.New("not connected")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMQTTSink(&fakePublisher{token: tc.token}, "sail/telemetry", time.Millisecond)
			if err := s.Write(sampleRecord()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
