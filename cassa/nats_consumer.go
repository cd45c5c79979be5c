package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/codes"

	"trattoria/comanda"
	"trattoria/cucina/telemetry"
)

// delivery is the slice of jetstream.Msg the worker actually touches.
type delivery interface {
	Data() []byte
	Headers() nats.Header
	Ack() error
}

// Worker pulls processing requests from the durable consumer in batches
// and runs each through the Processor. Every delivery is acknowledged
// after its attempt: the terminal order status is the record of the
// outcome, the queue is not.
type Worker struct {
	consumer     jetstream.Consumer
	processor    *Processor
	batchSize    int
	fetchMaxWait time.Duration
}

// NewWorker ensures the stream and the durable consumer exist and binds
// to them. The stream config matches the intake side so either service
// can start first.
func NewWorker(ctx context.Context, js jetstream.JetStream, settings *Settings, processor *Processor) (*Worker, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        settings.Orders.Stream,
		Description: "table orders waiting for fulfillment",
		Subjects:    []string{settings.Orders.Subject + ".>"},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %q: %w", settings.Orders.Stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       settings.Cassa.Durable,
		FilterSubject: fmt.Sprintf("%s.nuova.*", settings.Orders.Subject),
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure consumer %q: %w", settings.Cassa.Durable, err)
	}

	return &Worker{
		consumer:     consumer,
		processor:    processor,
		batchSize:    settings.Cassa.BatchSize,
		fetchMaxWait: time.Duration(settings.Cassa.FetchMaxWaitInSeconds) * time.Second,
	}, nil
}

// Run fetches and handles batches until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "listening for processing requests",
		slog.Int("batch_size", w.batchSize), slog.Duration("fetch_max_wait", w.fetchMaxWait))

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
		}

		batch, err := w.consumer.Fetch(w.batchSize, jetstream.FetchMaxWait(w.fetchMaxWait))
		if err != nil {
			slog.ErrorContext(ctx, "failed to fetch processing requests", slog.Any("err", err))
			continue
		}

		for msg := range batch.Messages() {
			w.handleDelivery(ctx, msg)
		}
		if err := batch.Error(); err != nil {
			slog.ErrorContext(ctx, "batch ended with error", slog.Any("err", err))
		}
	}
}

// handleDelivery decodes and processes one request. Failed attempts are
// acknowledged too; the order record already carries the error status and
// a redelivery would only replay the same write.
func (w *Worker) handleDelivery(ctx context.Context, msg delivery) {
	ctx = telemetry.ExtractContextFromHeader(ctx, msg.Headers())
	ctx, span := tracer.Start(ctx, "Worker.handleDelivery")
	defer span.End()

	var req comanda.ProcessingRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal processing request", slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed processing request")
		w.ack(ctx, msg)
		return
	}

	orderID := req.ID()
	if orderID == "" {
		slog.ErrorContext(ctx, "processing request carries no order id")
		span.SetStatus(codes.Error, "missing order id")
		w.ack(ctx, msg)
		return
	}

	if err := w.processor.Process(ctx, orderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fulfillment attempt failed")
	}

	w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg delivery) {
	if err := msg.Ack(); err != nil {
		slog.ErrorContext(ctx, "failed to acknowledge message", slog.Any("err", err))
	}
}
