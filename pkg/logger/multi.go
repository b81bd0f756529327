package logger

import (
	"context"
	"errors"
	"log/slog"
)

// Tee returns a logger that writes every record through each of ls. serve
// --log-file uses it to keep pretty terminal output next to a JSON file.
//
// A handler that fails does not stop the others; their errors are joined.
func Tee(ls ...*slog.Logger) *slog.Logger {
	t := make(teeHandler, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			t = append(t, l.Handler())
		}
	}
	return slog.New(t)
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		// Each handler gets its own copy; handlers may add attrs to the record.
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
