package telemetry

import (
	"context"
	"fmt"
	"log/slog"
)

// errorFormattingMiddleware expands error-valued attributes into a group
// carrying the message and the concrete error type, so every sink renders
// errors the same way.
func errorFormattingMiddleware(
	ctx context.Context,
	record slog.Record,
	next func(context.Context, slog.Record) error,
) error {
	attrs := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			attrs = append(attrs, slog.Group(attr.Key,
				slog.String("message", err.Error()),
				slog.String("type", fmt.Sprintf("%T", err)),
			))
			return true
		}
		attrs = append(attrs, attr)
		return true
	})

	clone := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	clone.AddAttrs(attrs...)

	return next(ctx, clone)
}
