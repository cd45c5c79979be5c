package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"trattoria/comanda"
)

// NATSCompletionFeed adapts the fire-and-forget completion subject into
// per-subscriber channels for the SSE endpoint. Slow subscribers drop
// notifications instead of blocking the NATS callback.
type NATSCompletionFeed struct {
	nc          *nats.Conn
	subject     string
	channelSize int
}

var _ CompletionFeed = (*NATSCompletionFeed)(nil)

func NewNATSCompletionFeed(nc *nats.Conn, subject string, channelSize int) *NATSCompletionFeed {
	return &NATSCompletionFeed{nc: nc, subject: subject, channelSize: channelSize}
}

// Subscribe implements CompletionFeed. The returned cancel func drains the
// underlying NATS subscription.
func (f *NATSCompletionFeed) Subscribe(ctx context.Context) (<-chan comanda.Notification, func(), error) {
	ch := make(chan comanda.Notification, f.channelSize)

	sub, err := f.nc.Subscribe(f.subject, func(msg *nats.Msg) {
		var note comanda.Notification
		if err := json.Unmarshal(msg.Data, &note); err != nil {
			slog.ErrorContext(ctx, "failed to unmarshal completion notification", slog.Any("err", err))
			return
		}
		select {
		case ch <- note:
		default:
			slog.WarnContext(ctx, "dropping completion notification for slow subscriber",
				slog.String("order_id", note.OrderID))
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to completion subject",
			slog.String("subject", f.subject), slog.Any("err", err))
		return nil, nil, err
	}

	return ch, func() { _ = sub.Unsubscribe() }, nil
}
