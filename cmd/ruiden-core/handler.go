package main

import (
	"github.com/rs/zerolog"

	"github.com/tetragramaton/ruiden-go/internal/client/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/config"
	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/logging"
)

type MainHandler struct {
	Config     *config.Config
	Logger     zerolog.Logger
	MQTTClient mqttIface.Client
}

func NewMainHandler(cfg *config.Config, logger zerolog.Logger, mqttClient mqttIface.Client) *MainHandler {
	return &MainHandler{
		Config:     cfg,
		Logger:     logger,
		MQTTClient: mqttClient,
	}
}

func ProvideConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	if !cfg.MQTTEnabled() {
		return nil, errMissingBroker
	}
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return logger, err
	}
	return logger.With().Str("component", "ruiden-core").Logger(), nil
}

func ProvideMqttClient(cfg *config.Config, logger zerolog.Logger) (mqttIface.Client, error) {
	return mqtt.NewClient(mqtt.Config{
		BrokerURL: cfg.MQTT.URL,
		ClientID:  cfg.MQTT.ClientID,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		TLS:       cfg.MQTT.TLS,
	}, logger)
}
