// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/sail_logger/internal/app"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	flag.Parse()

	log.Println("starting simulated wing sensors (mock)")

	if err := app.RunWingSim(*addr); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
