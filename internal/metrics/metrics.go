package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sunspec-monitor/internal/sunspec"
)

const namespace = "sunspec"

// Metrics exports decoded register values and bus statistics on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	value      *prometheus.GaugeVec
	populated  *prometheus.GaugeVec
	expected   *prometheus.GaugeVec
	lastUpdate *prometheus.GaugeVec
	reads      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "register_value",
			Help:      "Scaled value of a numeric register.",
		}, []string{"device", "key", "units"}),
		populated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_registers_populated",
			Help:      "Registers holding a value after the last update.",
		}, []string{"device"}),
		expected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_registers_expected",
			Help:      "Registers defined for the device.",
		}, []string{"device"}),
		lastUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_last_update_timestamp_seconds",
			Help:      "Unix time of the last update.",
		}, []string{"device"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_reads_total",
			Help:      "Holding register reads by unit and result.",
		}, []string{"unit_id", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_read_duration_seconds",
			Help:      "Latency of holding register reads.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"unit_id"}),
	}

	m.registry.MustRegister(
		m.value, m.populated, m.expected, m.lastUpdate, m.reads, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records one device update. Readings without a numeric value
// drop their series so stale values are not scraped.
func (m *Metrics) Observe(device string, readings []sunspec.Reading, populated, expected int, at time.Time) {
	for _, r := range readings {
		f, ok := r.Value.Float64()
		if !ok {
			m.value.DeleteLabelValues(device, r.Key, r.Units)
			continue
		}
		m.value.WithLabelValues(device, r.Key, r.Units).Set(f)
	}
	m.populated.WithLabelValues(device).Set(float64(populated))
	m.expected.WithLabelValues(device).Set(float64(expected))
	m.lastUpdate.WithLabelValues(device).Set(float64(at.Unix()))
}

// Instrument wraps t so every read is counted and timed.
func (m *Metrics) Instrument(t sunspec.Transport) sunspec.Transport {
	return &instrumented{next: t, m: m}
}

type instrumented struct {
	next sunspec.Transport
	m    *Metrics
}

func (i *instrumented) ReadHoldingRegisters(ctx context.Context, address, quantity uint16, unitID uint8) ([]uint16, error) {
	unit := strconv.Itoa(int(unitID))
	start := time.Now()
	words, err := i.next.ReadHoldingRegisters(ctx, address, quantity, unitID)
	i.m.duration.WithLabelValues(unit).Observe(time.Since(start).Seconds())
	i.m.reads.WithLabelValues(unit, result(err)).Inc()
	return words, err
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sunspec.ErrProtocol):
		return "protocol_error"
	case errors.Is(err, sunspec.ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}
