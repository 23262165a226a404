//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
)

func InitMainHandler(configPath string) (*MainHandler, error) {
	wire.Build(
		NewMainHandler,
		ProvideConfig,
		ProvideLogger,
		ProvideMqttClient,
	)
	return nil, nil // wire will generate the result
}
