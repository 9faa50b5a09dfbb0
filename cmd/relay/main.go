package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"framerelay/internal/app"
	"framerelay/internal/config"
	"framerelay/internal/logger"
)

func main() {
	cfg := config.LoadRelay()

	log, err := logger.New(cfg.LogDirectory, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("Failed to start relay: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Error("Relay server failed: %v", err)
		os.Exit(1)
	}
}
