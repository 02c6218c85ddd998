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
	"github.com/atomweather/aggregator/internal/record"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "usage: get-client <server-addr> [station-id]")
		os.Exit(1)
	}
	addr := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.AppEnv, cfg.LogLevel, "get-client")
	slog.SetDefault(logger)

	reader := client.NewReader(addr, cfg.IOTimeout, time.Second, logger)

	if len(os.Args) == 3 {
		rec, err := reader.FetchStation(os.Args[2])
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				fmt.Println("No weather data available for station:", os.Args[2])
				return
			}
			logger.Error("fetch failed", "error", err)
			os.Exit(1)
		}
		printRecord(rec)
		return
	}

	recs, err := reader.FetchAll()
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("No content available")
		return
	}
	for i, rec := range recs {
		if i > 0 {
			fmt.Println()
		}
		printRecord(rec)
	}
}

func printRecord(rec *record.Record) {
	fmt.Println("id:", rec.ID)
	fmt.Println("name:", rec.Name)
	fmt.Println("lamportClock:", rec.LamportClock)
	for _, f := range rec.Fields {
		fmt.Printf("%s: %v\n", f.Key, f.Value)
	}
}
