package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"trattoria/comanda"
)

var (
	tracer = otel.Tracer("cameriere")
	meter  = otel.Meter("cameriere")
)

// OrderDispatcher schedules a stored order for fulfillment with
// at-least-once delivery.
type OrderDispatcher interface {
	Enqueue(ctx context.Context, orderID string) error
}

// CompletionFeed exposes the stream of completion notifications for the
// live SSE endpoint.
type CompletionFeed interface {
	Subscribe(ctx context.Context) (<-chan comanda.Notification, func(), error)
}

type MainHandler struct {
	store         comanda.OrderStore
	dispatcher    OrderDispatcher
	feed          CompletionFeed
	health        *healthgo.Health
	ordersCreated metric.Int64Counter
}

func NewMainHandler(
	e *echo.Echo,
	settings *Settings,
	store comanda.OrderStore,
	dispatcher OrderDispatcher,
	feed CompletionFeed,
	health *healthgo.Health,
) (*MainHandler, error) {
	ordersCreated, err := meter.Int64Counter(
		"cameriere.orders.created",
		metric.WithDescription("Number of orders accepted at intake"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: settings.HTTP.CORS.Origins,
		AllowMethods: settings.HTTP.CORS.Methods,
		AllowHeaders: settings.HTTP.CORS.Headers,
	}))
	e.Use(otelecho.Middleware(settings.App.Name))

	handler := &MainHandler{
		store:         store,
		dispatcher:    dispatcher,
		feed:          feed,
		health:        health,
		ordersCreated: ordersCreated,
	}

	e.GET("/healthz", handler.HealthCheck)
	v1 := e.Group("/v1")

	v1.POST("/orders", handler.CreateOrder)
	v1.GET("/orders/live", handler.GetCompletedOrdersSSE)
	v1.GET("/orders/:id", handler.GetOrder)

	return handler, nil
}

// CreateOrder godoc
//
// @Summary Create a new table order and schedule it for fulfillment
// @Tags orders
// @Accept json
// @Produce json
// @Param order body map[string]any true "Order payload: customer, items, table"
// @Success 201 {object} CreateOrderResponse
// @Failure 400 {object} ValidationErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/orders [post]
func (h *MainHandler) CreateOrder(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "MainHandler.CreateOrder")
	defer span.End()

	var payload map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		slog.ErrorContext(ctx, "failed to decode request body", slog.Any("err", err))
		return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Message: "invalid request body",
			Errors:  []string{"body must be a JSON object"},
		})
	}

	draft, violations := comanda.Validate(payload)
	if len(violations) > 0 {
		slog.InfoContext(ctx, "rejected order payload", slog.Any("violations", violations))
		return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Message: "invalid order payload",
			Errors:  violations,
		})
	}

	order := comanda.NewOrder(draft)
	span.SetAttributes(
		attribute.String("trattoria.orderid", order.ID),
		attribute.Int("order.table", order.Table),
		attribute.Int("order.items", len(order.Items)),
	)

	if err := h.store.Create(ctx, order); err != nil {
		slog.ErrorContext(ctx, "failed to store order", slog.String("order_id", order.ID), slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store order")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to store order"})
	}

	if err := h.dispatcher.Enqueue(ctx, order.ID); err != nil {
		// The stored order stays pending with no compensating delete; the
		// log line is the operator's handle for reconciliation.
		slog.ErrorContext(ctx, "order stored but not scheduled", slog.String("order_id", order.ID), slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to schedule order")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to schedule order for fulfillment"})
	}

	h.ordersCreated.Add(ctx, 1)
	slog.InfoContext(ctx, "order created", slog.String("order_id", order.ID))

	return c.JSON(http.StatusCreated, CreateOrderResponse{
		Message: "order created",
		OrderID: order.ID,
		Status:  string(order.Status),
	})
}

// GetOrder godoc
//
// @Summary Fetch an order and its lifecycle status
// @Tags orders
// @Produce json
// @Param id path string true "Order id"
// @Success 200 {object} comanda.Order
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/orders/{id} [get]
func (h *MainHandler) GetOrder(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "MainHandler.GetOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("trattoria.orderid", id))

	order, err := h.store.Get(ctx, id)
	if errors.Is(err, comanda.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "order not found"})
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load order", slog.String("order_id", id), slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to load order"})
	}

	return c.JSON(http.StatusOK, order)
}

// GetCompletedOrdersSSE godoc
//
// @Summary Stream completion notifications via Server-Sent Events (SSE)
// @Tags orders
// @Produce text/event-stream
// @Success 200 {object} comanda.Notification
// @Router /v1/orders/live [get]
func (h *MainHandler) GetCompletedOrdersSSE(c echo.Context) error {
	ctx := c.Request().Context()
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		slog.ErrorContext(ctx, "streaming unsupported by response writer")
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming unsupported")
	}

	ch, unsubscribe, err := h.feed.Subscribe(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to completions", slog.Any("err", err))
		return err
	}
	defer unsubscribe()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "client closed connection")
			return nil
		case note := <-ch:
			data, err := json.Marshal(note)
			if err != nil {
				slog.ErrorContext(ctx, "marshal notification for SSE", slog.Any("err", err))
				continue
			}
			if _, err := c.Response().Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				slog.ErrorContext(ctx, "write SSE", slog.Any("err", err))
				return err
			}
			flusher.Flush()
		}
	}
}

// HealthCheck godoc
//
// @Summary Check the health of the service
// @Tags health
// @Produce json
// @Success 200 {object} healthgo.Check
// @Failure 503 {object} healthgo.Check
// @Router /healthz [get]
func (h *MainHandler) HealthCheck(c echo.Context) error {
	check := h.health.Measure(c.Request().Context())

	statusCode := http.StatusOK
	if check.Status != healthgo.StatusOK {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, check)
}
