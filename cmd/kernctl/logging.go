package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/joshuapare/kcore/kernel"
)

// Rotation settings for --log-file.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger builds the process logger. Logs go to stderr, or to a rotated
// file when --log-file is set. --json selects the JSON handler; otherwise
// levels are colored when stderr is a terminal.
func newLogger(cfg kernel.Config, stderr *os.File) (*slog.Logger, io.Closer, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	var (
		out     io.Writer = stderr
		closer  io.Closer = nopCloser{}
		colored           = !noColor && isTerminal(stderr)
	)
	if logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
		}
		out, closer, colored = lj, lj, false
	}

	opts := &slog.HandlerOptions{Level: level}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(out, opts)), closer, nil
	}
	if colored {
		opts.ReplaceAttr = colorLevel
	}
	return slog.New(slog.NewTextHandler(out, opts)), closer, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var levelColors = []struct {
	min slog.Level
	c   *color.Color
}{
	{slog.LevelError, color.New(color.FgRed, color.Bold)},
	{slog.LevelWarn, color.New(color.FgYellow)},
	{slog.LevelInfo, color.New(color.FgGreen)},
	{slog.LevelDebug, color.New(color.FgMagenta)},
}

func colorLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	for _, lc := range levelColors {
		if level >= lc.min {
			lc.c.EnableColor()
			return slog.String(a.Key, lc.c.Sprint(level.String()))
		}
	}
	return a
}
