// Package telemetry turns decoded snapshots into the MQTT meta and state
// payloads consumed by ruiden-core and other subscribers.
package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/ruiden"
)

const (
	CapVoltage     = "sensor.voltage"
	CapCurrent     = "sensor.current"
	CapTemperature = "sensor.temperature"
	CapOutput      = "output.state"
)

// Caps lists every capability an adapter announces.
var Caps = []string{CapVoltage, CapCurrent, CapTemperature, CapOutput}

const (
	PathMeta   = "/meta"
	PathState  = "/state"
	PathStatus = "/status"
)

// Availability payloads on PathStatus. Offline is the broker will.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type Meta struct {
	DeviceID string   `json:"device_id"`
	Model    string   `json:"model,omitempty"`
	Area     string   `json:"area,omitempty"`
	SN       string   `json:"sn,omitempty"`
	FW       uint16   `json:"fw,omitempty"`
	Caps     []string `json:"caps"`
}

type SensorState struct {
	Ts   int64  `json:"ts"`
	Cap  string `json:"cap"`
	Unit string `json:"unit,omitempty"`

	Set *float64 `json:"set,omitempty"`
	Out *float64 `json:"out,omitempty"`

	Internal *float64 `json:"internal,omitempty"`
	External *float64 `json:"external,omitempty"`

	On *bool `json:"on,omitempty"`
}

// MetaFor describes the device behind info.
func MetaFor(deviceID, area string, info ruiden.Information) Meta {
	return Meta{
		DeviceID: deviceID,
		Model:    info.Model.String(),
		Area:     area,
		SN:       info.SN,
		FW:       info.FW,
		Caps:     Caps,
	}
}

// StatesFor builds one state per capability. Invalid readings are left out;
// a capability with no valid reading is skipped entirely.
func StatesFor(info ruiden.Information, now time.Time) []SensorState {
	ts := now.Unix()
	var out []SensorState

	if s, ok := pairState(ts, CapVoltage, "V", info.VSet, info.VOut, precision(info.VMul)); ok {
		out = append(out, s)
	}
	if s, ok := pairState(ts, CapCurrent, "A", info.ISet, info.IOut, precision(info.IMul)); ok {
		out = append(out, s)
	}

	out = append(out, SensorState{
		Ts:       ts,
		Cap:      CapTemperature,
		Unit:     "°C",
		Internal: round(float64(info.IntCelsius()), 0),
		External: round(float64(info.ExtCelsius()), 0),
	})

	on := info.OutputEnabled()
	out = append(out, SensorState{Ts: ts, Cap: CapOutput, On: &on})

	return out
}

func pairState(ts int64, capName, unit string, set, cur ruiden.Reading, prec int) (SensorState, bool) {
	s := SensorState{Ts: ts, Cap: capName, Unit: unit}
	if set.Valid {
		s.Set = round(float64(set.Value), prec)
	}
	if cur.Valid {
		s.Out = round(float64(cur.Value), prec)
	}
	return s, s.Set != nil || s.Out != nil
}

// precision is the number of decimals a multiplier resolves.
func precision(mul float32) int {
	if mul <= 1 {
		return 0
	}
	return int(math.Round(math.Log10(float64(mul))))
}

func round(v float64, prec int) *float64 {
	p := math.Pow10(prec)
	r := math.Round(v*p) / p
	return &r
}

// Topic joins the per-device topic: <prefix>/<device id><path>.
func Topic(prefix, deviceID, path string) string {
	return prefix + "/" + deviceID + path
}

// Publish marshals payload as JSON and publishes it under the device topic.
func Publish(pub mqttIface.Publisher, topic string, payload any, retain bool) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return pub.PublishEvent(mqttIface.Message{
		Topic:   topic,
		Payload: data,
		QoS:     1,
		Retain:  retain,
	})
}
