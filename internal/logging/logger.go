package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New builds the process logger: a colorized tint handler for dev, a
// JSON handler otherwise.
func New(appEnv string, level slog.Level, appName string) *slog.Logger {
	if appEnv == "dev" {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", appName, "env", appEnv)
}
