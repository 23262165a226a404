package ha

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tetragramaton/ruiden-go/internal/telemetry"
)

const Manufacturer = "RIDEN"

type Device struct {
	Identifiers   []string `json:"identifiers,omitempty"`
	Manufacturer  string   `json:"manufacturer,omitempty"`
	Model         string   `json:"model,omitempty"`
	Name          string   `json:"name,omitempty"`
	SWVersion     string   `json:"sw_version,omitempty"`
	SerialNumber  string   `json:"serial_number,omitempty"`
	SuggestedArea string   `json:"suggested_area,omitempty"`
}

type SensorConfig struct {
	Name         string                 `json:"name"`
	UniqueID     string                 `json:"unique_id"`
	StateTopic   string                 `json:"state_topic"`
	ValueTpl     string                 `json:"value_template,omitempty"`
	DeviceClass  string                 `json:"device_class,omitempty"`
	UnitOfMeas   string                 `json:"unit_of_measurement,omitempty"`
	Device       *Device                `json:"device,omitempty"`
	QoS          int                    `json:"qos,omitempty"`
	Availability []map[string]string    `json:"availability,omitempty"`
	Extra        map[string]interface{} `json:"-"`
}

func (c *SensorConfig) Marshal() ([]byte, error) {
	type alias SensorConfig
	a := alias(*c)
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if c.Extra != nil {
		var base map[string]interface{}
		if err := json.Unmarshal(b, &base); err != nil {
			return nil, err
		}
		for k, v := range c.Extra {
			base[k] = v
		}
		return json.Marshal(base)
	}
	return b, nil
}

// Entry is one retained discovery message.
type Entry struct {
	Topic  string
	Config *SensorConfig
}

func TopicConfig(component, cap, unique string) string {
	return fmt.Sprintf("homeassistant/%s/%s/%s/config", component, unique, cap)
}

func TopicSensorConfig(cap, unique string) string {
	return TopicConfig("sensor", cap, unique)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// Sanitize maps a device id onto the characters HA accepts in unique ids.
func Sanitize(s string) string {
	return strings.ToLower(unsafeChars.ReplaceAllString(s, "_"))
}

type measurement struct {
	key, label, field string
	class, unit       string
}

var capMeasurements = map[string][]measurement{
	telemetry.CapVoltage: {
		{"voltage_set", "voltage setpoint", "set", "voltage", "V"},
		{"voltage_out", "output voltage", "out", "voltage", "V"},
	},
	telemetry.CapCurrent: {
		{"current_set", "current limit", "set", "current", "A"},
		{"current_out", "output current", "out", "current", "A"},
	},
	telemetry.CapTemperature: {
		{"temp_internal", "internal temperature", "internal", "temperature", "°C"},
		{"temp_external", "external temperature", "external", "temperature", "°C"},
	},
}

// Discovery builds the HA config entries for every cap in meta. Unknown
// caps are skipped.
func Discovery(prefix string, meta telemetry.Meta) []Entry {
	unique := Sanitize(meta.DeviceID)
	stateTopic := telemetry.Topic(prefix, meta.DeviceID, telemetry.PathState)
	device := &Device{
		Identifiers:   []string{meta.DeviceID},
		Manufacturer:  Manufacturer,
		Model:         meta.Model,
		Name:          meta.DeviceID,
		SerialNumber:  meta.SN,
		SuggestedArea: meta.Area,
	}
	if meta.FW != 0 {
		device.SWVersion = fmt.Sprintf("%d.%02d", meta.FW/100, meta.FW%100)
	}
	availability := []map[string]string{{
		"topic":                 telemetry.Topic(prefix, meta.DeviceID, telemetry.PathStatus),
		"payload_available":     telemetry.StatusOnline,
		"payload_not_available": telemetry.StatusOffline,
	}}

	var out []Entry
	for _, c := range meta.Caps {
		if c == telemetry.CapOutput {
			out = append(out, Entry{
				Topic: TopicConfig("binary_sensor", "output", unique),
				Config: &SensorConfig{
					Name:         fmt.Sprintf("%s output", meta.DeviceID),
					UniqueID:     unique + "_output",
					StateTopic:   stateTopic,
					ValueTpl:     fmt.Sprintf("{{ ('ON' if value_json.on else 'OFF') if value_json.cap == %q else this.state | upper }}", c),
					DeviceClass:  "power",
					Device:       device,
					QoS:          1,
					Availability: availability,
					Extra: map[string]interface{}{
						"payload_on":  "ON",
						"payload_off": "OFF",
					},
				},
			})
			continue
		}
		for _, m := range capMeasurements[c] {
			out = append(out, Entry{
				Topic: TopicSensorConfig(m.key, unique),
				Config: &SensorConfig{
					Name:         fmt.Sprintf("%s %s", meta.DeviceID, m.label),
					UniqueID:     unique + "_" + m.key,
					StateTopic:   stateTopic,
					ValueTpl:     fmt.Sprintf("{{ value_json.%s if value_json.cap == %q else this.state }}", m.field, c),
					DeviceClass:  m.class,
					UnitOfMeas:   m.unit,
					Device:       device,
					QoS:          1,
					Availability: availability,
					Extra:        map[string]interface{}{"state_class": "measurement"},
				},
			})
		}
	}
	return out
}
