package main

import (
	_ "embed"

	"trattoria/cucina"
)

//go:embed base.yaml
var baseConfig []byte

type GatewaySettings struct {
	// FeedBuffer is the per-subscriber channel size of the live SSE feed.
	FeedBuffer int `mapstructure:"feed-buffer" validate:"required,min=1"`
}

type Settings struct {
	App           cucina.AppSettings           `mapstructure:"app" validate:"required"`
	HTTP          cucina.HTTPSettings          `mapstructure:"http" validate:"required"`
	Nats          cucina.NatsSettings          `mapstructure:"nats" validate:"required"`
	Orders        cucina.OrderFlowSettings     `mapstructure:"orders" validate:"required"`
	Gateway       GatewaySettings              `mapstructure:"gateway" validate:"required"`
	OpenTelemetry cucina.OpenTelemetrySettings `mapstructure:"opentelemetry" validate:"required"`
}

func LoadConfig() (*Settings, error) {
	return cucina.LoadConfig[Settings]("CAMERIERE", baseConfig)
}
