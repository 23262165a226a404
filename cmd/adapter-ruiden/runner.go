package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/ruiden"
	"github.com/tetragramaton/ruiden-go/internal/telemetry"
)

// PublishOnce fetches one telemetry snapshot and fans it out to metrics,
// the capture file and MQTT. Meta is republished whenever the identity
// differs from the last announcement. The main loop calls it on every tick.
func PublishOnce(ctx context.Context, h *MainHandler, now time.Time) (ruiden.Information, error) {
	info, err := h.Device.FetchInfo(ctx)
	if err != nil {
		h.Metrics.ObserveError()
		return ruiden.Information{}, fmt.Errorf("fetch info: %w", err)
	}
	h.Metrics.Observe(info, now)

	var errs []error
	if h.announced == nil || identityChanged(*h.announced, info) {
		if err := PublishMeta(h, info); err != nil {
			errs = append(errs, fmt.Errorf("meta: %w", err))
		} else {
			h.announced = &info
		}
	}

	if h.Recorder != nil {
		if err := h.Recorder.Record(now, info); err != nil {
			h.Logger.Warn().Err(err).Msg("capture record")
		}
	}

	if h.MQTTClient == nil {
		return info, errors.Join(errs...)
	}
	topic := telemetry.Topic(h.Config.MQTT.Prefix, h.Config.Device.ID, telemetry.PathState)
	for _, state := range telemetry.StatesFor(info, now) {
		if err := telemetry.Publish(h.MQTTClient, topic, state, false); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", state.Cap, err))
		}
	}
	return info, errors.Join(errs...)
}

// PublishMeta announces the device and marks it online.
func PublishMeta(h *MainHandler, info ruiden.Information) error {
	if h.MQTTClient == nil {
		return nil
	}
	prefix, id := h.Config.MQTT.Prefix, h.Config.Device.ID

	meta := telemetry.MetaFor(id, h.Config.Device.Area, info)
	if err := telemetry.Publish(h.MQTTClient, telemetry.Topic(prefix, id, telemetry.PathMeta), meta, true); err != nil {
		return err
	}
	return h.MQTTClient.PublishEvent(mqttIface.Message{
		Topic:   telemetry.Topic(prefix, id, telemetry.PathStatus),
		Payload: []byte(telemetry.StatusOnline),
		QoS:     1,
		Retain:  true,
	})
}

func offlineMessage(h *MainHandler) mqttIface.Message {
	return mqttIface.Message{
		Topic:   telemetry.Topic(h.Config.MQTT.Prefix, h.Config.Device.ID, telemetry.PathStatus),
		Payload: []byte(telemetry.StatusOffline),
		QoS:     1,
		Retain:  true,
	}
}

// identityChanged reports whether meta must be republished.
func identityChanged(prev, cur ruiden.Information) bool {
	return prev.ID != cur.ID || prev.SN != cur.SN || prev.FW != cur.FW || prev.Model != cur.Model
}
