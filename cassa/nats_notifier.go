package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"trattoria/comanda"
	"trattoria/cucina/telemetry"
)

// NATSNotifier publishes completion announcements on a core NATS subject.
// No stream backs the subject; subscribers only see announcements while
// connected.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
}

var _ Notifier = (*NATSNotifier)(nil)

func NewNATSNotifier(nc *nats.Conn, subject string) *NATSNotifier {
	return &NATSNotifier{nc: nc, subject: subject}
}

// Publish implements Notifier.
func (n *NATSNotifier) Publish(ctx context.Context, note comanda.Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: n.subject,
		Data:    data,
	}
	telemetry.InjectContextToNatsMsg(ctx, msg)

	if err := n.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish completion for %s: %w", note.OrderID, err)
	}
	return nil
}
