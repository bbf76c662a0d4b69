// Package telemetry exports retirement decisions as Prometheus metrics.
package telemetry

import (
	"fmt"

	"github.com/inference-sim/retirement-sim/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const namespace = "retirement_sim"

// PrometheusSink is a sim.EventSink that updates Prometheus collectors per decision.
// Prometheus collectors are safe for concurrent use, so Record never locks.
type PrometheusSink struct {
	decisions *prometheus.CounterVec
	cpuFreed  prometheus.Counter
	utility   *prometheus.HistogramVec
	cycles    prometheus.Gauge
	active    prometheus.Gauge
	retired   prometheus.Gauge
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Agent decisions by outcome.",
		}, []string{"decision"}),
		cpuFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cpu_freed_units_total",
			Help:      "Estimated CPU units reclaimed by retirements.",
		}),
		utility: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utility_score",
			Help:      "Utility score observed at decision time.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"decision"}),
		cycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cycles_completed",
			Help:      "Completed simulation cycles.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "services_active",
			Help:      "Services not yet retired.",
		}),
		retired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "services_retired",
			Help:      "Services retired so far.",
		}),
	}
	for _, c := range []prometheus.Collector{s.decisions, s.cpuFreed, s.utility, s.cycles, s.active, s.retired} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering retirement metrics: %w", err)
		}
	}
	// Expose both label values from the start so rates work before the first retirement.
	for _, d := range []sim.Decision{sim.DecisionRetain, sim.DecisionRetire} {
		s.decisions.WithLabelValues(string(d))
	}
	return s, nil
}

// Record implements sim.EventSink.
func (s *PrometheusSink) Record(event sim.RetirementEvent) {
	label := string(event.Decision)
	s.decisions.WithLabelValues(label).Inc()
	s.utility.WithLabelValues(label).Observe(event.UtilityScore)
	if event.IsRetire() {
		s.cpuFreed.Add(event.CPUFreed)
	}
}

// ObserveSummary sets the fleet gauges from an orchestrator summary.
func (s *PrometheusSink) ObserveSummary(m sim.SimulationMetrics) {
	s.cycles.Set(float64(m.Cycles))
	s.active.Set(float64(m.ActiveServices))
	s.retired.Set(float64(m.RetiredServices))
}

// WriteTextfile dumps every metric gathered by g in the text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	logrus.Infof("metrics written to %s", path)
	return nil
}
