package logger

import (
	"log/slog"
	"os"
)

func New(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	var h slog.Handler
	if env == "dev" {
		// В dev текстовый вывод читабельнее JSON.
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

func WithComponent(log *slog.Logger, name string) *slog.Logger {
	return log.With("component", name)
}
