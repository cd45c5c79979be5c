package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"trattoria/comanda"
	"trattoria/cucina/telemetry"
)

// NATSOrderDispatcher publishes processing requests on a JetStream stream.
// The stream gives at-least-once delivery to the fulfillment boundary.
type NATSOrderDispatcher struct {
	js      jetstream.JetStream
	subject string
}

var _ OrderDispatcher = (*NATSOrderDispatcher)(nil)

// NewNATSOrderDispatcher ensures the stream exists and binds to it.
func NewNATSOrderDispatcher(ctx context.Context, nc *nats.Conn, streamName, subject string) (*NATSOrderDispatcher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "table orders waiting for fulfillment",
		Subjects:    []string{subject + ".>"},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %q: %w", streamName, err)
	}

	return &NATSOrderDispatcher{js: js, subject: subject}, nil
}

// Enqueue implements OrderDispatcher.
func (d *NATSOrderDispatcher) Enqueue(ctx context.Context, orderID string) error {
	data, err := json.Marshal(comanda.ProcessingRequest{OrderID: orderID})
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: fmt.Sprintf("%s.nuova.%s", d.subject, orderID),
		Data:    data,
	}
	telemetry.InjectContextToNatsMsg(ctx, msg)

	if _, err := d.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish processing request for %s: %w", orderID, err)
	}
	return nil
}
