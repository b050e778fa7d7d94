package logging

import (
	"context"
	"log/slog"
)

type scopedLogger struct{}

// WithContext attaches log to ctx for handlers further down the chain.
func WithContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, scopedLogger{}, log)
}

// FromContext returns the logger attached to ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(scopedLogger{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// With narrows the logger on ctx by attrs and stores the result back, so
// everything handed the returned context logs the same identifiers.
func With(ctx context.Context, attrs ...slog.Attr) (context.Context, *slog.Logger) {
	log := FromContext(ctx)
	if len(attrs) > 0 {
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		log = log.With(args...)
	}
	return WithContext(ctx, log), log
}
