// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sail_logger/internal/telemetry"
)

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	return client, nil
}

// subscribeTelemetry decodes every record published on topic and passes it
// to fn. Undecodable payloads are logged and dropped.
func subscribeTelemetry(client mqtt.Client, topic, prefix string, fn func(telemetry.Record)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var rec telemetry.Record
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Printf("%s: telemetry unmarshal error: %v", prefix, err)
			return
		}
		fn(rec)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("%s: subscribed to %s", prefix, topic)
	return nil
}
