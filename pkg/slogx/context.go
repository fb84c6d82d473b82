package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// Ensure returns ctx unchanged when it already carries a logger, otherwise
// attaches fallback.
func Ensure(ctx context.Context, fallback *slog.Logger) context.Context {
	if _, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return ctx
	}
	return WithContext(ctx, fallback)
}

// WithRequestID tags the context logger with req_id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("req_id", reqID))
}
