// Package metrics exposes the latest power supply snapshot as Prometheus gauges.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tetragramaton/ruiden-go/internal/ruiden"
)

type Collector struct {
	registry *prometheus.Registry

	voltage     *prometheus.GaugeVec
	current     *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	output      prometheus.Gauge
	fetchErrors prometheus.Counter
	lastFetch   prometheus.Gauge
	device      *prometheus.GaugeVec

	mu         sync.Mutex
	deviceSeen prometheus.Labels
}

// New builds a collector on its own registry, labelled with deviceID.
func New(deviceID string) *Collector {
	constLabels := prometheus.Labels{"device": deviceID}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		voltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ruiden_voltage_volts",
			Help:        "Output voltage setpoint and measurement (V).",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ruiden_current_amps",
			Help:        "Output current setpoint and measurement (A).",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ruiden_temperature_celsius",
			Help:        "Internal and external probe temperature (°C).",
			ConstLabels: constLabels,
		}, []string{"probe"}),
		output: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ruiden_output_enabled",
			Help:        "1 when the output stage is on.",
			ConstLabels: constLabels,
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ruiden_fetch_errors_total",
			Help:        "Failed telemetry fetches.",
			ConstLabels: constLabels,
		}),
		lastFetch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ruiden_last_fetch_timestamp_seconds",
			Help:        "Unix time of the last successful fetch.",
			ConstLabels: constLabels,
		}),
		device: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ruiden_device_info",
			Help:        "Identity of the connected power supply.",
			ConstLabels: constLabels,
		}, []string{"model", "sn", "fw"}),
	}

	c.registry.MustRegister(
		c.voltage,
		c.current,
		c.temperature,
		c.output,
		c.fetchErrors,
		c.lastFetch,
		c.device,
		collectors.NewGoCollector(),
	)
	return c
}

// Observe records a successful fetch.
func (c *Collector) Observe(info ruiden.Information, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	setReading(c.voltage, "set", info.VSet)
	setReading(c.voltage, "out", info.VOut)
	setReading(c.current, "set", info.ISet)
	setReading(c.current, "out", info.IOut)

	c.temperature.WithLabelValues("internal").Set(float64(info.IntCelsius()))
	c.temperature.WithLabelValues("external").Set(float64(info.ExtCelsius()))

	if info.OutputEnabled() {
		c.output.Set(1)
	} else {
		c.output.Set(0)
	}

	labels := prometheus.Labels{
		"model": info.Model.String(),
		"sn":    info.SN,
		"fw":    strconv.Itoa(int(info.FW)),
	}
	if c.deviceSeen != nil && !sameLabels(c.deviceSeen, labels) {
		c.device.Delete(c.deviceSeen)
	}
	c.device.With(labels).Set(1)
	c.deviceSeen = labels

	c.lastFetch.Set(float64(at.Unix()))
}

// ObserveError counts a failed fetch.
func (c *Collector) ObserveError() {
	c.fetchErrors.Inc()
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func setReading(vec *prometheus.GaugeVec, kind string, r ruiden.Reading) {
	if !r.Valid {
		vec.DeleteLabelValues(kind)
		return
	}
	vec.WithLabelValues(kind).Set(float64(r.Value))
}

func sameLabels(a, b prometheus.Labels) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
