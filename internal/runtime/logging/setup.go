package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options selects the slog handler built by New.
type Options struct {
	// Format is FormatJSON (default) or FormatText.
	Format string
	// Level is parsed by ParseLevel. Empty means info.
	Level string
	// Output defaults to io.Discard.
	Output io.Writer
}

// New builds a slog-backed ServiceLogger from opts.
func New(opts Options) (ServiceLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatJSON:
		handler = slog.NewJSONHandler(out, handlerOpts)
	case FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		return nil, fmt.Errorf("wormhole: unknown log format %q", opts.Format)
	}
	return NewSlogServiceLogger(slog.New(handler)), nil
}

// ParseLevel accepts slog level names ("debug", "info", "warn", "error",
// optionally with an offset such as "debug-4") and "trace", which maps to
// the level Watermill trace messages are logged at.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "trace":
		return watermillTraceLevel, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("wormhole: invalid log level %q", s)
	}
	return level, nil
}
