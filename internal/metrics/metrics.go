// Package metrics collects per-run Prometheus metrics. watchpost is a batch
// job, so metrics are exported through the node_exporter textfile collector
// instead of an HTTP endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for activities that reached the delivery stage.
const (
	OutcomeDelivered  = "delivered"
	OutcomeDuplicate  = "duplicate"
	OutcomeSuppressed = "suppressed"
)

// Recorder is what the notifier reports into.
type Recorder interface {
	RecordFetched(n int)
	RecordOutcome(outcome string)
	RecordRun(took time.Duration, err error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFetched(int)              {}
func (Nop) RecordOutcome(string)           {}
func (Nop) RecordRun(time.Duration, error) {}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	reg *prometheus.Registry

	fetched     prometheus.Counter
	outcomes    *prometheus.CounterVec
	runFailures prometheus.Counter
	runDuration prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_activities_fetched_total",
			Help: "Raw activities returned by the upstream API.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchpost_activities_total",
			Help: "Decoded activities by delivery outcome.",
		}, []string{"outcome"}),
		runFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_run_failures_total",
			Help: "Runs that ended with an error.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchpost_last_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchpost_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed without error.",
		}),
	}
	// Pre-create label values so all outcomes show up as 0.
	for _, o := range []string{OutcomeDelivered, OutcomeDuplicate, OutcomeSuppressed} {
		c.outcomes.WithLabelValues(o)
	}

	c.reg.MustRegister(c.fetched, c.outcomes, c.runFailures, c.runDuration, c.lastSuccess)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) RecordFetched(n int) { c.fetched.Add(float64(n)) }

func (c *Collector) RecordOutcome(outcome string) { c.outcomes.WithLabelValues(outcome).Inc() }

func (c *Collector) RecordRun(took time.Duration, err error) {
	c.runDuration.Set(took.Seconds())
	if err != nil {
		c.runFailures.Inc()
		return
	}
	c.lastSuccess.SetToCurrentTime()
}
