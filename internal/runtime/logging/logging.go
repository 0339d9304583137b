package logging

import (
	"io"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LogFields holds structured key/value pairs.
type LogFields map[string]any

// ServiceLogger is the logging contract used across wormhole. It mirrors
// Watermill's logger so router internals and correlator code log through the
// same sink.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

// EntryLoggerAdapter is satisfied by logrus-style entry loggers whose
// builder methods return their own type.
type EntryLoggerAdapter[T any] interface {
	Error(args ...any)
	Info(args ...any)
	Debug(args ...any)
	Trace(args ...any)
	WithError(err error) T
	WithField(key string, value any) T
}

// watermillTraceLevel is the slog level Watermill's slog adapter uses for
// Trace calls.
const watermillTraceLevel = slog.LevelDebug - 4

// levelMapping keeps Watermill's levels as they are. Per-message router
// chatter stays at trace and debug, so an info-level correlator log only
// shows lifecycle and correlation events.
var levelMapping = map[slog.Level]slog.Level{
	watermillTraceLevel: watermillTraceLevel,
	slog.LevelDebug:     slog.LevelDebug,
	slog.LevelInfo:      slog.LevelInfo,
	slog.LevelWarn:      slog.LevelWarn,
	slog.LevelError:     slog.LevelError,
}

// NewSlogServiceLogger wraps a slog.Logger.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("wormhole: slog logger cannot be nil")
	}
	return NewWatermillServiceLogger(watermill.NewSlogLoggerWithLevelMapping(log, levelMapping))
}

// NewWatermillServiceLogger wraps an existing Watermill LoggerAdapter.
func NewWatermillServiceLogger(logger watermill.LoggerAdapter) ServiceLogger {
	if logger == nil {
		panic("wormhole: watermill logger cannot be nil")
	}
	return watermillLogger{inner: logger}
}

// NewEntryServiceLogger wraps an entry-style logger (for example a
// logrus.Entry). Fields are applied in key order.
func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	if any(entry) == nil {
		panic("wormhole: entry logger cannot be nil")
	}
	return entryLogger[T]{entry: entry}
}

// NewDiscardLogger returns a ServiceLogger that drops everything. It is the
// default for library callers that do not pass a logger.
func NewDiscardLogger() ServiceLogger {
	return NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// NewWatermillAdapter turns a ServiceLogger back into a Watermill
// LoggerAdapter for the router and transports. A ServiceLogger that already
// wraps a Watermill adapter is unwrapped instead of layered.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("wormhole: ServiceLogger cannot be nil")
	}
	if w, ok := log.(watermillLogger); ok {
		return w.inner
	}
	return routerLogger{base: log}
}
