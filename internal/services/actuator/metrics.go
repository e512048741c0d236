package actuator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/pump-actuator/internal/connectivity"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/internal/scheduler"
)

const namespace = "pump_actuator"

// Metrics owns a private registry; state gauges are read at scrape time.
type Metrics struct {
	reg             *prometheus.Registry
	commands        *prometheus.CounterVec
	events          *prometheus.CounterVec
	published       prometheus.Counter
	publishFailures prometheus.Counter
	skippedCycles   prometheus.Counter
}

func NewMetrics(snapshot func() model.Snapshot, status func() connectivity.Status) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Pump commands received, by command and outcome.",
		}, []string{"command", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_events_total",
			Help:      "Pump and interlock transitions, by kind.",
		}, []string{"kind"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_published_total",
			Help:      "Telemetry messages handed to the broker.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_failures_total",
			Help:      "Sensor reads or telemetry publishes that failed.",
		}),
		skippedCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_skipped_cycles_total",
			Help:      "Telemetry cycles skipped because the link was not ready.",
		}),
	}

	boolGauge := func(name, help string, fn func() bool) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 {
				if fn() {
					return 1
				}
				return 0
			})
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands, m.events, m.published, m.publishFailures, m.skippedCycles,
		boolGauge("pump_on", "1 while the relay is commanded on.", func() bool {
			return snapshot().Pump == model.PumpOn
		}),
		boolGauge("interlock_blocked", "1 while the water level blocks the pump.", func() bool {
			return snapshot().Interlock == model.InterlockBlocked
		}),
		boolGauge("link_ready", "1 while transport and broker session are both up.", func() bool {
			return status().Ready
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_level_percent",
			Help:      "Last water level fed to the interlock.",
		}, func() float64 { return snapshot().Level }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_connect_attempts_total",
			Help:      "Transport connect requests issued.",
		}, func() float64 { return float64(status().TransportAttempts) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_connect_attempts_total",
			Help:      "Broker session connect attempts.",
		}, func() float64 { return float64(status().SessionAttempts) }),
	)
	return m
}

func (m *Metrics) RecordCommand(cmd model.Command, outcome string) {
	m.commands.WithLabelValues(string(cmd), outcome).Inc()
}

func (m *Metrics) RecordEvent(e model.PumpEvent) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
}

func (m *Metrics) RecordStep(res scheduler.StepResult) {
	if res.Telemetry.Skipped {
		m.skippedCycles.Inc()
		return
	}
	m.published.Add(float64(res.Telemetry.Published))
	m.publishFailures.Add(float64(res.Telemetry.Failed))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
