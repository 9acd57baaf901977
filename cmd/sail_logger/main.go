// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/sail_logger/internal/app"
	"github.com/relabs-tech/sail_logger/internal/config"
)

func main() {
	configPath := flag.String("config", "./sail_config.txt", "path to configuration file (.txt KEY=VALUE or .yaml)")
	flag.Parse()

	log.Println("starting sail logger (wings, GPS, compass → log file)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunLogger(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
