package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	mqttIface "github.com/tetragramaton/ruiden-go/internal/interface/mqtt"
)

type mqttClient struct {
	mqttIface.API
	logger zerolog.Logger
}

var _ mqttIface.Client = (*mqttClient)(nil)

type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLS       bool

	// Will, when set, is published retained by the broker if the
	// connection drops.
	WillTopic   string
	WillPayload []byte
}

func NewClient(cfg Config, logger zerolog.Logger) (mqttIface.Client, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt: missing broker url")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("mqtt: missing client id")
	}
	logger = logger.With().Str("component", "mqtt").Str("broker", cfg.BrokerURL).Logger()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetConnectTimeout(5 * time.Second).
		SetPingTimeout(3 * time.Second).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info().Msg("connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.WillTopic != "" {
		opts.SetBinaryWill(cfg.WillTopic, cfg.WillPayload, 1, true)
	}

	client := mqtt.NewClient(opts)
	t := client.Connect()
	if ok := t.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt: connect %s: timeout", cfg.BrokerURL)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.BrokerURL, err)
	}
	return New(client, logger), nil
}

// New wraps an already connected paho client.
func New(api mqttIface.API, logger zerolog.Logger) mqttIface.Client {
	return &mqttClient{API: api, logger: logger}
}

func (c *mqttClient) PublishEvent(message mqttIface.Message) error {
	t := c.API.Publish(message.Topic, message.QoS, message.Retain, message.Payload)
	t.Wait()
	if err := t.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", message.Topic, err)
	}
	c.logger.Trace().Str("topic", message.Topic).Int("bytes", len(message.Payload)).Msg("published")
	return nil
}

func (c *mqttClient) SubscribeToTopic(sub mqttIface.Subscription) error {
	t := c.API.Subscribe(sub.Topic, sub.QoS, sub.Callback)
	t.Wait()
	if err := t.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", sub.Topic, err)
	}
	return nil
}

func (c *mqttClient) Close(quiesce uint) error {
	if c.IsConnectionOpen() {
		c.Disconnect(quiesce)
	}
	return nil
}
