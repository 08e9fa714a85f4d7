package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Haleralex/walletledger/internal/config"
	"github.com/Haleralex/walletledger/internal/container"
)

func main() {
	var (
		configPath string
		configName string
	)
	flag.StringVar(&configPath, "config-path", "./configs", "directory searched for the config file")
	flag.StringVar(&configName, "config-name", "config", "config file name without extension")
	flag.Parse()

	cfg, err := config.Load(configPath, configName)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := container.New(cfg)
	if err := app.Initialize(ctx); err != nil {
		log.Fatalf("initializing: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
		os.Exit(1)
	}
}
