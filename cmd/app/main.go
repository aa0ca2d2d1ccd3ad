package main

import (
	"context"
	"flag"
	"log"
	"os"

	"SignalHub/internal/di"
	"SignalHub/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s port=%d price_store=%s kafka=%t", cfg.Environment, cfg.Server.Port, cfg.Prices.Store.Backend, cfg.Kafka.Enabled)

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	// Run application (blocks until signal)
	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		cleanup()
		os.Exit(1)
	}
}
