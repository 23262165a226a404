package mqtt

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
	"github.com/tetragramaton/ruiden-go/internal/interface/mqtt/mocks"
)

// doneToken is an already completed paho token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

var _ mqtt.Token = doneToken{}

func TestPublishEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	payload := []byte(`{"cap":"sensor.voltage"}`)
	api.EXPECT().Publish("ruiden/psu/state", byte(1), false, payload).Return(doneToken{})

	c := New(api, zerolog.Nop())
	require.NoError(t, c.PublishEvent(mqttIface.Message{Topic: "ruiden/psu/state", Payload: payload, QoS: 1}))
}

func TestPublishEvent_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	boom := errors.New("not connected")
	api.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(doneToken{err: boom})

	err := New(api, zerolog.Nop()).PublishEvent(mqttIface.Message{Topic: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "publish x")
}

func TestSubscribeToTopic(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Subscribe("ruiden/+/meta", byte(1), gomock.Any()).Return(doneToken{})

	err := New(api, zerolog.Nop()).SubscribeToTopic(mqttIface.Subscription{
		Topic:    "ruiden/+/meta",
		QoS:      1,
		Callback: func(mqtt.Client, mqtt.Message) {},
	})
	require.NoError(t, err)
}

func TestClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	gomock.InOrder(
		api.EXPECT().IsConnectionOpen().Return(true),
		api.EXPECT().Disconnect(uint(250)),
		api.EXPECT().IsConnectionOpen().Return(false),
	)

	c := New(api, zerolog.Nop())
	require.NoError(t, c.Close(250))
	require.NoError(t, c.Close(250))
}

func TestNewClient_RequiresBrokerAndID(t *testing.T) {
	_, err := NewClient(Config{ClientID: "x"}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewClient(Config{BrokerURL: "tcp://localhost:1883"}, zerolog.Nop())
	assert.Error(t, err)
}
