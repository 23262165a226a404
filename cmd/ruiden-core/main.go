package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mq "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/tetragramaton/ruiden-go/internal/ha"
	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/telemetry"
)

var errMissingBroker = errors.New("ruiden-core: mqtt url is required")

var configPath string

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("RUIDEN_CONFIG"), "YAML configuration file")
}

func main() {
	flag.Parse()

	handler, err := InitMainHandler(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("core init")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := handler.Handle(ctx); err != nil {
		handler.Logger.Fatal().Err(err).Msg("core stopped")
	}
}

func (h *MainHandler) Handle(ctx context.Context) error {
	defer func() { _ = h.MQTTClient.Close(250) }()

	subscription := mqttIface.Subscription{
		Topic: h.metaFilter(),
		QoS:   1,
		Callback: func(_ mq.Client, m mq.Message) {
			if err := h.handleMeta(m.Payload()); err != nil {
				h.Logger.Warn().Err(err).Str("topic", m.Topic()).Msg("meta")
			}
		},
	}
	if err := h.MQTTClient.SubscribeToTopic(subscription); err != nil {
		return err
	}
	h.Logger.Info().Str("topic", subscription.Topic).Msg("ruiden-core up; waiting for meta")

	<-ctx.Done()
	return nil
}

func (h *MainHandler) metaFilter() string {
	return telemetry.Topic(h.Config.MQTT.Prefix, "+", telemetry.PathMeta)
}

func (h *MainHandler) handleMeta(payload []byte) error {
	var meta telemetry.Meta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return fmt.Errorf("bad meta: %w", err)
	}
	if meta.DeviceID == "" {
		return fmt.Errorf("bad meta: missing device_id")
	}

	var errs []error
	for _, e := range ha.Discovery(h.Config.MQTT.Prefix, meta) {
		if err := h.pubCfg(e); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	h.Logger.Info().Str("device_id", meta.DeviceID).Strs("caps", meta.Caps).Msg("HA discovery published")
	return nil
}

func (h *MainHandler) pubCfg(e ha.Entry) error {
	b, err := e.Config.Marshal()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Topic, err)
	}
	return h.MQTTClient.PublishEvent(mqttIface.Message{
		Topic:   e.Topic,
		Payload: b,
		QoS:     1,
		Retain:  true,
	})
}
