package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/atomweather/aggregator/internal/client"
	"github.com/atomweather/aggregator/internal/config"
	"github.com/atomweather/aggregator/internal/logging"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: content-server <server-addr> <feed-file>")
		os.Exit(1)
	}
	addr, feedPath := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.AppEnv, cfg.LogLevel, "content-server")
	slog.SetDefault(logger)

	pub := client.NewPublisher(addr, cfg.IOTimeout, 3*time.Second, logger)
	if err := pub.PublishFile(feedPath); err != nil {
		if errors.Is(err, client.ErrVerificationFailed) {
			logger.Error("upload verification failed", "error", err)
		} else {
			logger.Error("upload failed", "error", err)
		}
		os.Exit(1)
	}

	fmt.Println("Data uploaded successfully.")
}
