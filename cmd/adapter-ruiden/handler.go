package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tetragramaton/ruiden-go/internal/capture"
	modbusClient "github.com/tetragramaton/ruiden-go/internal/client/modbus"
	"github.com/tetragramaton/ruiden-go/internal/client/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/config"
	modbusIface "github.com/tetragramaton/ruiden-go/internal/interface/modbus"
	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/logging"
	"github.com/tetragramaton/ruiden-go/internal/metrics"
	"github.com/tetragramaton/ruiden-go/internal/ruiden"
	"github.com/tetragramaton/ruiden-go/internal/telemetry"
)

// Device is the part of *ruiden.Ruiden the adapter drives.
type Device interface {
	FetchInit(ctx context.Context) (ruiden.Initialization, error)
	FetchInfo(ctx context.Context) (ruiden.Information, error)
	Close() error
}

type MainHandler struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Device     Device
	MQTTClient mqttIface.Client // nil when no broker is configured
	Metrics    *metrics.Collector
	Recorder   *capture.Recorder // nil when capture is off

	announced *ruiden.Information
}

func NewMainHandler(
	cfg *config.Config,
	logger zerolog.Logger,
	device Device,
	mqttClient mqttIface.Client,
	collector *metrics.Collector,
	recorder *capture.Recorder,
) *MainHandler {
	return &MainHandler{
		Config:     cfg,
		Logger:     logger,
		Device:     device,
		MQTTClient: mqttClient,
		Metrics:    collector,
		Recorder:   recorder,
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
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return logger, err
	}
	return logger.With().Str("device_id", cfg.Device.ID).Logger(), nil
}

func ProvideModbusClient(cfg *config.Config, logger zerolog.Logger) (modbusIface.Client, error) {
	return modbusClient.NewHandler(cfg.Device.Transport(), logger)
}

func ProvideDevice(client modbusIface.Client, cfg *config.Config, logger zerolog.Logger) Device {
	return ruiden.New(client,
		ruiden.WithLogger(logger),
		ruiden.WithModelOverride(cfg.Device.ModelOverride()),
	)
}

func ProvideMqttClient(cfg *config.Config, logger zerolog.Logger) (mqttIface.Client, error) {
	if !cfg.MQTTEnabled() {
		return nil, nil
	}
	return mqtt.NewClient(mqtt.Config{
		BrokerURL:   cfg.MQTT.URL,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TLS:         cfg.MQTT.TLS,
		WillTopic:   telemetry.Topic(cfg.MQTT.Prefix, cfg.Device.ID, telemetry.PathStatus),
		WillPayload: []byte(telemetry.StatusOffline),
	}, logger)
}

func ProvideMetrics(cfg *config.Config) *metrics.Collector {
	return metrics.New(cfg.Device.ID)
}

func ProvideRecorder(cfg *config.Config) (*capture.Recorder, error) {
	if cfg.Capture.Path == "" {
		return nil, nil
	}
	return capture.Open(cfg.Capture.Path)
}
