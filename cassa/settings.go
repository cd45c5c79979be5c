package main

import (
	_ "embed"

	"trattoria/cucina"
)

//go:embed base.yaml
var baseConfig []byte

type CassaSettings struct {
	Durable               string `mapstructure:"durable" validate:"required"`
	BatchSize             int    `mapstructure:"batch-size" validate:"required,min=1"`
	FetchMaxWaitInSeconds int    `mapstructure:"fetch-max-wait-in-seconds" validate:"required,min=1"`
}

type Settings struct {
	App           cucina.AppSettings           `mapstructure:"app" validate:"required"`
	Cassa         CassaSettings                `mapstructure:"cassa" validate:"required"`
	HTTP          cucina.HTTPSettings          `mapstructure:"http" validate:"required"`
	Nats          cucina.NatsSettings          `mapstructure:"nats" validate:"required"`
	Orders        cucina.OrderFlowSettings     `mapstructure:"orders" validate:"required"`
	OpenTelemetry cucina.OpenTelemetrySettings `mapstructure:"opentelemetry" validate:"required"`
}

func LoadConfig() (*Settings, error) {
	return cucina.LoadConfig[Settings]("CASSA", baseConfig)
}
