package ha

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetragramaton/ruiden-go/internal/telemetry"
)

func meta() telemetry.Meta {
	return telemetry.Meta{
		DeviceID: "Bench.PSU-1",
		Model:    "RD6018",
		Area:     "lab",
		SN:       "00000012",
		FW:       136,
		Caps:     telemetry.Caps,
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "bench_psu_1", Sanitize("Bench.PSU-1"))
	assert.Equal(t, "rd6018", Sanitize("rd6018"))
}

func TestDiscovery(t *testing.T) {
	entries := Discovery("ruiden", meta())
	require.Len(t, entries, 7)

	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.Config.UniqueID] = e
	}

	vout := byID["bench_psu_1_voltage_out"]
	assert.Equal(t, "homeassistant/sensor/bench_psu_1/voltage_out/config", vout.Topic)
	assert.Equal(t, "ruiden/Bench.PSU-1/state", vout.Config.StateTopic)
	assert.Equal(t, `{{ value_json.out if value_json.cap == "sensor.voltage" else this.state }}`, vout.Config.ValueTpl)
	assert.Equal(t, "V", vout.Config.UnitOfMeas)
	assert.Equal(t, "1.36", vout.Config.Device.SWVersion)
	assert.Equal(t, "ruiden/Bench.PSU-1/status", vout.Config.Availability[0]["topic"])

	out := byID["bench_psu_1_output"]
	assert.Equal(t, "homeassistant/binary_sensor/bench_psu_1/output/config", out.Topic)
	assert.Equal(t, `{{ ('ON' if value_json.on else 'OFF') if value_json.cap == "output.state" else this.state | upper }}`, out.Config.ValueTpl)

	for _, id := range []string{"current_set", "current_out", "temp_internal", "temp_external", "voltage_set"} {
		assert.Contains(t, byID, "bench_psu_1_"+id)
	}
}

// Every cap shares one state topic, so a message for another cap must keep
// the current state instead of rendering an empty value.
func TestDiscovery_TemplatesKeepStateForOtherCaps(t *testing.T) {
	for _, e := range Discovery("ruiden", meta()) {
		assert.Contains(t, e.Config.ValueTpl, "else this.state", e.Config.UniqueID)
	}
}

func TestDiscovery_SkipsUnknownCaps(t *testing.T) {
	m := meta()
	m.Caps = []string{"sensor.frequency", telemetry.CapTemperature}
	entries := Discovery("ruiden", m)
	assert.Len(t, entries, 2)
}

func TestSensorConfig_MarshalMergesExtra(t *testing.T) {
	entries := Discovery("ruiden", meta())
	var output *SensorConfig
	for _, e := range entries {
		if e.Config.UniqueID == "bench_psu_1_output" {
			output = e.Config
		}
	}
	require.NotNil(t, output)

	b, err := output.Marshal()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "ON", got["payload_on"])
	assert.Equal(t, "OFF", got["payload_off"])
	assert.Equal(t, "power", got["device_class"])
	assert.NotContains(t, got, "Extra")
	assert.NotContains(t, got, "unit_of_measurement")
}

func TestSensorConfig_MarshalWithoutExtra(t *testing.T) {
	c := &SensorConfig{Name: "n", UniqueID: "u", StateTopic: "s"}
	b, err := c.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n","unique_id":"u","state_topic":"s"}`, string(b))
}
