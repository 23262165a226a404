package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tetragramaton/ruiden-go/internal/model"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	d := cfg.Device

	switch strings.ToLower(d.Mode) {
	case "rtu":
		if d.Port == "" {
			return fmt.Errorf("device: port is required in rtu mode")
		}
		switch strings.ToUpper(d.Parity) {
		case "N", "E", "O":
		default:
			return fmt.Errorf("device: parity must be N, E or O, got %q", d.Parity)
		}
		if d.Baud <= 0 {
			return fmt.Errorf("device: invalid baud %d", d.Baud)
		}
		if d.DataBits < 5 || d.DataBits > 8 {
			return fmt.Errorf("device: invalid data_bits %d", d.DataBits)
		}
		if d.StopBits != 1 && d.StopBits != 2 {
			return fmt.Errorf("device: invalid stop_bits %d", d.StopBits)
		}
	case "tcp":
		if d.TCPAddr == "" {
			return fmt.Errorf("device: tcp_addr is required in tcp mode")
		}
	default:
		return fmt.Errorf("device: mode must be rtu or tcp, got %q", d.Mode)
	}

	// 0 is broadcast, 248..255 are reserved
	if d.SlaveID < 1 || d.SlaveID > 247 {
		return fmt.Errorf("device: slave_id %d out of range 1..247", d.SlaveID)
	}
	if d.TimeoutMs <= 0 {
		return fmt.Errorf("device: timeout_ms must be positive")
	}
	if d.IdleTimeoutMs < 0 {
		return fmt.Errorf("device: idle_timeout_ms must not be negative")
	}
	if !modelUnset(d.Model) {
		if _, ok := model.Lookup(d.Model); !ok {
			return fmt.Errorf("device: unknown model %q", d.Model)
		}
	}

	if cfg.Poll.IntervalSec <= 0 {
		return fmt.Errorf("poll: interval_sec must be positive")
	}

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}
	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log: format must be console or json, got %q", cfg.Log.Format)
	}

	return nil
}
