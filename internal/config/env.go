package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overrides cfg with the MODBUS_*, MQTT_* and related variables
// that are set in the environment.
func ApplyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"DEVICE_ID", &cfg.Device.ID},
		{"AREA", &cfg.Device.Area},
		{"MODEL", &cfg.Device.Model},
		{"MODBUS_MODE", &cfg.Device.Mode},
		{"MODBUS_PORT", &cfg.Device.Port},
		{"MODBUS_PARITY", &cfg.Device.Parity},
		{"MODBUS_TCP_ADDR", &cfg.Device.TCPAddr},
		{"MQTT_URL", &cfg.MQTT.URL},
		{"MQTT_CLIENT_ID", &cfg.MQTT.ClientID},
		{"MQTT_USERNAME", &cfg.MQTT.Username},
		{"MQTT_PASSWORD", &cfg.MQTT.Password},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"METRICS_LISTEN", &cfg.Metrics.Listen},
		{"CAPTURE_PATH", &cfg.Capture.Path},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.key); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MODBUS_BAUD", &cfg.Device.Baud},
		{"MODBUS_DATABITS", &cfg.Device.DataBits},
		{"MODBUS_STOPBITS", &cfg.Device.StopBits},
		{"MODBUS_SLAVE_ID", &cfg.Device.SlaveID},
		{"MODBUS_TIMEOUT_MS", &cfg.Device.TimeoutMs},
		{"INTERVAL_SEC", &cfg.Poll.IntervalSec},
	}
	for _, i := range ints {
		v, ok := os.LookupEnv(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", i.key, v, err)
		}
		*i.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"MQTT_TLS", &cfg.MQTT.TLS},
		{"MODBUS_RS485", &cfg.Device.RS485},
	}
	for _, b := range bools {
		v, ok := os.LookupEnv(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", b.key, v, err)
		}
		*b.dst = parsed
	}

	return nil
}
