// Package config loads the adapter and CLI configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	modbusClient "github.com/tetragramaton/ruiden-go/internal/client/modbus"
	"github.com/tetragramaton/ruiden-go/internal/model"
)

type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Poll    PollConfig    `yaml:"poll"`
	Metrics MetricsConfig `yaml:"metrics"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID   string `yaml:"id"`
	Area string `yaml:"area"`

	Mode string `yaml:"mode"` // "rtu" or "tcp"

	// RTU
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
	RS485    bool   `yaml:"rs485"`

	// TCP
	TCPAddr string `yaml:"tcp_addr"`

	SlaveID       int `yaml:"slave_id"`
	TimeoutMs     int `yaml:"timeout_ms"`
	IdleTimeoutMs int `yaml:"idle_timeout_ms"`

	// Model forces multipliers when the identity register is not recognised.
	Model string `yaml:"model"`
}

// ---- MQTT ----

type MQTTConfig struct {
	URL      string `yaml:"url"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
	Prefix   string `yaml:"prefix"`
}

type PollConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

type CaptureConfig struct {
	Path string `yaml:"path"` // empty disables recording
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:        "rd60xx.psu",
			Area:      "lab",
			Mode:      "rtu",
			Port:      "/dev/ttyUSB0",
			Baud:      115200,
			DataBits:  8,
			Parity:    "N",
			StopBits:  1,
			TCPAddr:   "127.0.0.1:502",
			SlaveID:   1,
			TimeoutMs: 500,
		},
		MQTT: MQTTConfig{
			URL:    "tcp://mqtt:1883",
			Prefix: "ruiden",
		},
		Poll: PollConfig{IntervalSec: 1},
		Log:  LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.URL != ""
}

// Interval is the poll period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Poll.IntervalSec) * time.Second
}

// Transport converts the device section into transport settings.
func (d DeviceConfig) Transport() modbusClient.Config {
	return modbusClient.Config{
		Mode:        d.Mode,
		Port:        d.Port,
		Baud:        d.Baud,
		DataBits:    d.DataBits,
		Parity:      d.Parity,
		StopBits:    d.StopBits,
		RS485:       d.RS485,
		TCPAddr:     d.TCPAddr,
		SlaveID:     byte(d.SlaveID),
		Timeout:     time.Duration(d.TimeoutMs) * time.Millisecond,
		IdleTimeout: time.Duration(d.IdleTimeoutMs) * time.Millisecond,
	}
}

// ModelOverride returns the configured model, or model.Unknown when unset.
// Call after Validate.
func (d DeviceConfig) ModelOverride() model.Model {
	if modelUnset(d.Model) {
		return model.Unknown
	}
	m, _ := model.Lookup(d.Model)
	return m
}

// modelUnset reports whether name leaves the override off. "unknown" is
// accepted as an explicit spelling of unset.
func modelUnset(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, model.Unknown.String())
}
