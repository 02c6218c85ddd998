package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/atomweather/aggregator/internal/config"
	"github.com/atomweather/aggregator/internal/logging"
	"github.com/atomweather/aggregator/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// An optional positional port overrides the environment, matching
	// how the server has historically been launched.
	port := cfg.Port
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q, using %d\n", os.Args[1], port)
		} else {
			port = p
		}
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel, "aggregation-server")
	slog.SetDefault(logger)

	srv, err := server.New(server.Options{
		Addr:          fmt.Sprintf(":%d", port),
		StorageFile:   cfg.StorageFile,
		Capacity:      cfg.Capacity,
		Workers:       cfg.Workers,
		IOTimeout:     cfg.IOTimeout,
		ExpiryWindow:  cfg.ExpiryWindow,
		SweepInterval: cfg.SweepInterval,
	}, logger)
	if err != nil {
		logger.Error("server init failed", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server start failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	srv.Shutdown()
}
