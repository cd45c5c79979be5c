package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go/jetstream"
	slogecho "github.com/samber/slog-echo"

	"trattoria/comanda"
	"trattoria/cucina/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()
	retcode := 0
	defer func() {
		os.Exit(retcode)
	}()

	slog.InfoContext(ctx, "Launching cassa")

	slog.InfoContext(ctx, "Loading config")
	settings, err := LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("err", err))
		retcode = 1
		return
	}

	slog.InfoContext(ctx, "Setting up opentelemetry")
	otelShutdown, err := telemetry.SetupOTelSDK(ctx, settings.App, settings.OpenTelemetry)
	if err != nil {
		slog.Error("failed to setup telemetry", slog.Any("err", err))
		retcode = 1
		return
	}

	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
		if err != nil {
			slog.ErrorContext(ctx, "failed to shutdown opentelemetry providers", slog.Any("err", err))
			retcode = 1
		}
	}()

	slog.InfoContext(ctx, "Connecting to NATS server")
	nc, err := settings.Nats.GetNatsClient()
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to NATS server", slog.Any("err", err))
		retcode = 1
		return
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create jetstream context", slog.Any("err", err))
		retcode = 1
		return
	}

	store, err := comanda.NewKVOrderStore(ctx, js, settings.Orders.Bucket)
	if err != nil {
		slog.ErrorContext(ctx, "failed to bind order store", slog.Any("err", err))
		retcode = 1
		return
	}

	objects, err := NewNATSObjectStore(ctx, js, settings.Orders.ReceiptBucket)
	if err != nil {
		slog.ErrorContext(ctx, "failed to bind receipt object store", slog.Any("err", err))
		retcode = 1
		return
	}

	notifier := NewNATSNotifier(nc, settings.Orders.CompletedSubject)

	processor, err := NewProcessor(store, objects, notifier)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create processor", slog.Any("err", err))
		retcode = 1
		return
	}

	worker, err := NewWorker(ctx, js, settings, processor)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create worker", slog.Any("err", err))
		retcode = 1
		return
	}

	slog.InfoContext(ctx, "Setting up health checker")
	health, err := healthgo.New(
		healthgo.WithComponent(healthgo.Component{
			Name:    settings.App.Name,
			Version: settings.App.Version,
		}),
		healthgo.WithChecks(healthgo.Config{
			Name: "nats",
			Check: func(ctx context.Context) error {
				if !nc.IsConnected() {
					return errors.New("NATS connection is not active")
				}
				return nil
			},
		}),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create health checker", slog.Any("err", err))
		retcode = 1
		return
	}

	server := echo.New()
	server.HideBanner = true
	server.Use(slogecho.New(slog.Default()))
	server.Use(middleware.Recover())
	server.GET("/healthz", func(c echo.Context) error {
		check := health.Measure(c.Request().Context())
		statusCode := http.StatusOK
		if check.Status != healthgo.StatusOK {
			statusCode = http.StatusServiceUnavailable
		}
		return c.JSON(statusCode, check)
	})

	errChan := make(chan error)

	go func() {
		slog.InfoContext(ctx, "health endpoint listening",
			slog.String("ip", settings.HTTP.IP), slog.String("port", settings.HTTP.Port))
		errChan <- server.Start(fmt.Sprintf("%s:%s", settings.HTTP.IP, settings.HTTP.Port))
	}()

	go func() {
		errChan <- worker.Run(ctx)
	}()

	select {
	case err = <-errChan:
		if err != nil {
			slog.ErrorContext(ctx, "service stopped with error", slog.Any("err", err))
			retcode = 1
		}
	case <-ctx.Done():
		// Wait for first Signal arrives
	}

	if err := server.Shutdown(context.Background()); err != nil {
		slog.ErrorContext(ctx, "failed to shutdown gracefully the server", slog.Any("err", err))
	}
}
