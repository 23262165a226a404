package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/interface/mqtt/mocks"
	"github.com/tetragramaton/ruiden-go/internal/model"
	"github.com/tetragramaton/ruiden-go/internal/ruiden"
)

var now = time.Unix(1700000000, 0)

func rd6006p() ruiden.Information {
	return ruiden.Information{
		ID:     60065,
		SN:     "00001234",
		FW:     136,
		Model:  model.RD6006P,
		VMul:   1000,
		IMul:   10000,
		IntC:   27,
		ExtC:   0x00010003,
		VSet:   ruiden.Reading{Raw: 5000, Value: 5.0, Valid: true},
		ISet:   ruiden.Reading{Raw: 12345, Value: 1.2345, Valid: true},
		VOut:   ruiden.Reading{Raw: 4998, Value: 4.998, Valid: true},
		IOut:   ruiden.Reading{Raw: 3210, Value: 0.321, Valid: true},
		Output: 1,
	}
}

func byCap(states []SensorState) map[string]SensorState {
	m := make(map[string]SensorState, len(states))
	for _, s := range states {
		m[s.Cap] = s
	}
	return m
}

func TestStatesFor(t *testing.T) {
	states := byCap(StatesFor(rd6006p(), now))
	require.Len(t, states, 4)

	v := states[CapVoltage]
	assert.Equal(t, int64(1700000000), v.Ts)
	assert.Equal(t, "V", v.Unit)
	assert.InDelta(t, 5.0, *v.Set, 1e-9)
	assert.InDelta(t, 4.998, *v.Out, 1e-9)

	i := states[CapCurrent]
	assert.InDelta(t, 1.2345, *i.Set, 1e-9)
	assert.InDelta(t, 0.321, *i.Out, 1e-9)

	temp := states[CapTemperature]
	assert.Equal(t, 27.0, *temp.Internal)
	assert.Equal(t, -3.0, *temp.External)

	out := states[CapOutput]
	require.NotNil(t, out.On)
	assert.True(t, *out.On)
}

func TestStatesFor_UncalibratedOmitsScaled(t *testing.T) {
	info := rd6006p()
	info.Model, info.VMul, info.IMul = model.Unknown, 0, 0
	info.VSet, info.ISet = ruiden.Reading{Raw: 5000}, ruiden.Reading{Raw: 12345}
	info.VOut, info.IOut = ruiden.Reading{Raw: 4998}, ruiden.Reading{Raw: 3210}

	states := byCap(StatesFor(info, now))
	assert.NotContains(t, states, CapVoltage)
	assert.NotContains(t, states, CapCurrent)
	assert.Contains(t, states, CapTemperature)
	assert.Contains(t, states, CapOutput)
}

func TestStatesFor_JSONShape(t *testing.T) {
	states := byCap(StatesFor(rd6006p(), now))
	b, err := json.Marshal(states[CapOutput])
	require.NoError(t, err)
	assert.JSONEq(t, `{"ts":1700000000,"cap":"output.state","on":true}`, string(b))
}

func TestPrecision(t *testing.T) {
	assert.Equal(t, 2, precision(100))
	assert.Equal(t, 3, precision(1000))
	assert.Equal(t, 4, precision(10000))
	assert.Equal(t, 0, precision(0))
}

func TestMetaFor(t *testing.T) {
	meta := MetaFor("bench.psu", "lab", rd6006p())
	assert.Equal(t, Meta{
		DeviceID: "bench.psu",
		Model:    "RD6006P",
		Area:     "lab",
		SN:       "00001234",
		FW:       136,
		Caps:     Caps,
	}, meta)
}

func TestPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	var got mqttIface.Message
	pub.EXPECT().PublishEvent(gomock.Any()).DoAndReturn(func(m mqttIface.Message) error {
		got = m
		return nil
	})

	meta := MetaFor("bench.psu", "lab", rd6006p())
	require.NoError(t, Publish(pub, Topic("ruiden", "bench.psu", PathMeta), meta, true))

	assert.Equal(t, "ruiden/bench.psu/meta", got.Topic)
	assert.True(t, got.Retain)
	assert.Equal(t, byte(1), got.QoS)
	var decoded Meta
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, meta, decoded)
}

func TestPublish_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	boom := errors.New("broker gone")
	pub.EXPECT().PublishEvent(gomock.Any()).Return(boom)

	assert.ErrorIs(t, Publish(pub, "t", SensorState{}, false), boom)
}
