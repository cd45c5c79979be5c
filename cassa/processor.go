package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"trattoria/comanda"
	"trattoria/scontrino"
)

var (
	tracer = otel.Tracer("cassa")
	meter  = otel.Meter("cassa")
)

const completionSubject = "Pedido Pronto!"

// ObjectStore holds rendered receipt documents. Put returns the stable
// location URI the order record will carry.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Notifier announces completed orders. Publishing is best effort.
type Notifier interface {
	Publish(ctx context.Context, note comanda.Notification) error
}

// Processor runs one order through fulfillment: load the record, mark it
// processing, render the receipt, store the document and settle the
// terminal status. Every step overwrites unconditionally so a redelivered
// order replays to the same end state.
type Processor struct {
	store    comanda.OrderStore
	objects  ObjectStore
	notifier Notifier
	render   func(scontrino.Receipt) ([]byte, error)

	ordersFulfilled metric.Int64Counter
	ordersFailed    metric.Int64Counter
	fulfillSeconds  metric.Float64Histogram
}

func NewProcessor(store comanda.OrderStore, objects ObjectStore, notifier Notifier) (*Processor, error) {
	ordersFulfilled, err := meter.Int64Counter(
		"cassa.orders.fulfilled",
		metric.WithDescription("Number of orders fulfilled with a stored receipt"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	ordersFailed, err := meter.Int64Counter(
		"cassa.orders.failed",
		metric.WithDescription("Number of orders that reached the error status"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	fulfillSeconds, err := meter.Float64Histogram(
		"cassa.orders.fulfillment.duration",
		metric.WithDescription("Duration of fulfillment attempts"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Processor{
		store:           store,
		objects:         objects,
		notifier:        notifier,
		render:          scontrino.Render,
		ordersFulfilled: ordersFulfilled,
		ordersFailed:    ordersFailed,
		fulfillSeconds:  fulfillSeconds,
	}, nil
}

// Process fulfills a single order. A missing order is dropped without
// error, any other failure settles the record on the error status before
// returning. The returned error reports the attempt outcome to the
// caller; it never requests a retry.
func (p *Processor) Process(ctx context.Context, orderID string) error {
	ctx, span := tracer.Start(ctx, "Processor.Process", trace.WithAttributes(
		attribute.String("trattoria.orderid", orderID),
	))
	defer span.End()
	started := time.Now()

	order, err := p.store.Get(ctx, orderID)
	if errors.Is(err, comanda.ErrOrderNotFound) {
		slog.WarnContext(ctx, "order referenced by queue no longer exists", slog.String("order_id", orderID))
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load order", slog.String("order_id", orderID), slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order")
		return err
	}

	processing := comanda.StatusProcessing
	if _, err := p.store.Update(ctx, orderID, comanda.Fields{Status: &processing}); err != nil {
		slog.ErrorContext(ctx, "failed to mark order processing", slog.String("order_id", orderID), slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to mark order processing")
		return err
	}

	slog.InfoContext(ctx, "fulfilling order", slog.String("order_id", orderID))

	doc, err := p.render(scontrino.Receipt{
		OrderID:  order.ID,
		Customer: order.Customer,
		Table:    order.Table,
		Items:    order.Items,
	})
	if err != nil {
		p.fail(ctx, span, orderID, "render receipt", err)
		return err
	}

	key := fmt.Sprintf("receipts/%s.pdf", orderID)
	location, err := p.objects.Put(ctx, key, doc, "application/pdf")
	if err != nil {
		p.fail(ctx, span, orderID, "store receipt", err)
		return err
	}

	done := comanda.StatusDone
	if _, err := p.store.Update(ctx, orderID, comanda.Fields{Status: &done, ReceiptLocation: &location}); err != nil {
		p.fail(ctx, span, orderID, "settle order", err)
		return err
	}

	// The order is already done; a lost notification is logged, not retried.
	note := comanda.Notification{
		Subject: completionSubject,
		Message: fmt.Sprintf("O pedido %s foi concluido.", orderID),
		OrderID: orderID,
	}
	if err := p.notifier.Publish(ctx, note); err != nil {
		slog.ErrorContext(ctx, "failed to publish completion notification",
			slog.String("order_id", orderID), slog.Any("err", err))
		span.RecordError(err)
	}

	p.ordersFulfilled.Add(ctx, 1)
	p.fulfillSeconds.Record(ctx, time.Since(started).Seconds())
	slog.InfoContext(ctx, "order fulfilled",
		slog.String("order_id", orderID), slog.String("receipt_location", location))

	return nil
}

// fail settles the order on the error status. The settling write itself
// is best effort; the record stays processing when it fails and the next
// redelivery repeats the attempt.
func (p *Processor) fail(ctx context.Context, span trace.Span, orderID, stage string, cause error) {
	slog.ErrorContext(ctx, "fulfillment failed",
		slog.String("order_id", orderID), slog.String("stage", stage), slog.Any("err", cause))
	span.RecordError(cause)
	span.SetStatus(codes.Error, stage)
	p.ordersFailed.Add(ctx, 1)

	errStatus := comanda.StatusError
	if _, err := p.store.Update(ctx, orderID, comanda.Fields{Status: &errStatus}); err != nil {
		slog.ErrorContext(ctx, "failed to settle order on error status",
			slog.String("order_id", orderID), slog.Any("err", err))
	}
}
