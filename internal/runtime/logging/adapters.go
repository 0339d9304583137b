package logging

import (
	"slices"

	"github.com/ThreeDotsLabs/watermill"
)

// watermillLogger adapts a watermill.LoggerAdapter to ServiceLogger.
type watermillLogger struct {
	inner watermill.LoggerAdapter
}

func (w watermillLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return w
	}
	return watermillLogger{inner: w.inner.With(watermill.LogFields(fields))}
}

func (w watermillLogger) Debug(msg string, fields LogFields) { w.inner.Debug(msg, toWatermill(fields)) }
func (w watermillLogger) Info(msg string, fields LogFields)  { w.inner.Info(msg, toWatermill(fields)) }
func (w watermillLogger) Trace(msg string, fields LogFields) { w.inner.Trace(msg, toWatermill(fields)) }

func (w watermillLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, toWatermill(fields))
}

// entryLogger adapts a logrus-style entry to ServiceLogger.
type entryLogger[T EntryLoggerAdapter[T]] struct {
	entry T
}

func (e entryLogger[T]) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return e
	}
	return entryLogger[T]{entry: withEntryFields(e.entry, fields)}
}

func (e entryLogger[T]) Debug(msg string, fields LogFields) { withEntryFields(e.entry, fields).Debug(msg) }
func (e entryLogger[T]) Info(msg string, fields LogFields)  { withEntryFields(e.entry, fields).Info(msg) }
func (e entryLogger[T]) Trace(msg string, fields LogFields) { withEntryFields(e.entry, fields).Trace(msg) }

func (e entryLogger[T]) Error(msg string, err error, fields LogFields) {
	entry := withEntryFields(e.entry, fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

// routerLogger adapts a ServiceLogger to watermill.LoggerAdapter.
type routerLogger struct {
	base ServiceLogger
}

func (r routerLogger) Error(msg string, err error, fields watermill.LogFields) {
	r.base.Error(msg, err, fromWatermill(fields))
}

func (r routerLogger) Info(msg string, fields watermill.LogFields) {
	r.base.Info(msg, fromWatermill(fields))
}

func (r routerLogger) Debug(msg string, fields watermill.LogFields) {
	r.base.Debug(msg, fromWatermill(fields))
}

func (r routerLogger) Trace(msg string, fields watermill.LogFields) {
	r.base.Trace(msg, fromWatermill(fields))
}

func (r routerLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return routerLogger{base: r.base.With(fromWatermill(fields))}
}

func toWatermill(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	return watermill.LogFields(fields)
}

func fromWatermill(fields watermill.LogFields) LogFields {
	if len(fields) == 0 {
		return nil
	}
	return LogFields(fields)
}

func withEntryFields[T EntryLoggerAdapter[T]](entry T, fields LogFields) T {
	if len(fields) == 0 || any(entry) == nil {
		return entry
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		entry = entry.WithField(k, fields[k])
	}
	return entry
}
