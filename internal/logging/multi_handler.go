package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanoutHandler duplicates records to every sink. The server runs it
// with the stdout JSON handler plus the postgres handler, so a failing
// database sink must not swallow the stdout line: every enabled sink
// gets the record and errors are joined afterwards.
type fanoutHandler struct {
	sinks []slog.Handler
}

func NewMultiHandler(sinks ...slog.Handler) slog.Handler {
	return &fanoutHandler{sinks: sinks}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range f.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range f.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(f.sinks))
	for i, sink := range f.sinks {
		sinks[i] = sink.WithAttrs(attrs)
	}
	return &fanoutHandler{sinks: sinks}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(f.sinks))
	for i, sink := range f.sinks {
		sinks[i] = sink.WithGroup(name)
	}
	return &fanoutHandler{sinks: sinks}
}
