package config

import (
	"strings"

	"github.com/google/uuid"
)

// Normalize applies post-validation normalization.
// It must be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Device.Mode = strings.ToLower(cfg.Device.Mode)
	cfg.Device.Parity = strings.ToUpper(cfg.Device.Parity)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.MQTT.Prefix == "" {
		cfg.MQTT.Prefix = "ruiden"
	}
	cfg.MQTT.Prefix = strings.TrimSuffix(cfg.MQTT.Prefix, "/")
	if cfg.MQTTEnabled() && cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "ruiden-" + uuid.NewString()
	}
}
