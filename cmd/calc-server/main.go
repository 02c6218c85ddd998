package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/atomweather/aggregator/internal/calc"
	"github.com/atomweather/aggregator/internal/config"
	"github.com/atomweather/aggregator/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.AppEnv, cfg.LogLevel, "calc-server")
	slog.SetDefault(logger)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.CalcPort))
	if err != nil {
		logger.Error("listen failed", "error", err)
		os.Exit(1)
	}

	if err := calc.Serve(ln, logger); err != nil {
		logger.Error("calculator service failed", "error", err)
		os.Exit(1)
	}
}
