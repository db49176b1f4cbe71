package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/talgya/cityscape/internal/config"
)

// setupLogging installs the default slog logger. "auto" picks text output
// on a terminal and JSON otherwise.
func setupLogging(cfg config.LogConfig) error {
	handler, err := newLogHandler(os.Stderr, cfg, isTerminal(os.Stderr))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func newLogHandler(w io.Writer, cfg config.LogConfig, terminal bool) (slog.Handler, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	}
	if terminal {
		return slog.NewTextHandler(w, opts), nil
	}
	return slog.NewJSONHandler(w, opts), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
