// Package utils holds small cmd/-facing helpers that don't belong to any
// single engine component.
package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var logLevels = map[string]slog.Level{
	"error": slog.LevelError,
	"warn":  slog.LevelWarn,
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
}

// ConfigureDefaultLogger installs slog's package-level default logger for
// the lifetime of a soundfieldctl process: text to stdout when logFile is
// empty, JSON to logFile otherwise, at the given level. logLevel "none"
// discards everything. Any other logLevel is rejected.
//
// The returned *os.File is the handle slog now writes through; callers
// that got a non-nil one are responsible for closing it on shutdown:
//
//	lf, err := utils.ConfigureDefaultLogger(level, path, slog.HandlerOptions{})
//	if lf != nil {
//		defer lf.Close()
//	}
func ConfigureDefaultLogger(logLevel string, logFile string, opts slog.HandlerOptions) (*os.File, error) {
	if logLevel == "none" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	level, ok := logLevels[logLevel]
	if !ok {
		return nil, fmt.Errorf("utils: unrecognized log level %q", logLevel)
	}
	opts.Level = level

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &opts)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("utils: opening log file %q: %w", logFile, err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &opts)))
	return f, nil
}
