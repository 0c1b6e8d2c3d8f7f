package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes every record to file and the records stderr accepts to stderr.
type teeHandler struct {
	file   slog.Handler
	stderr slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.file.Enabled(ctx, level) || h.stderr.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.file.Enabled(ctx, r.Level) {
		errs = append(errs, h.file.Handle(ctx, r.Clone()))
	}
	if h.stderr.Enabled(ctx, r.Level) {
		errs = append(errs, h.stderr.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{file: h.file.WithAttrs(attrs), stderr: h.stderr.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{file: h.file.WithGroup(name), stderr: h.stderr.WithGroup(name)}
}
