// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package importer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "flowsync_import"

// Entity kinds counted by the collector.
const (
	KindBucket  = "bucket"
	KindFlow    = "flow"
	KindVersion = "version"
)

// Collector is a prometheus.Collector that collects metrics about
// import runs.
type Collector struct {
	entities    *prometheus.CounterVec
	runDuration prometheus.Gauge
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		entities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "entities_total",
				Help:      "The number of buckets, flows and versions handled, by outcome.",
			}, []string{"kind", "action"},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "The time taken by the last import run.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.entities.Describe(ch)
	c.runDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.entities.Collect(ch)
	c.runDuration.Collect(ch)
}

func (c *Collector) entity(kind string, action Action) {
	if c == nil {
		return
	}
	c.entities.WithLabelValues(kind, string(action)).Inc()
}

func (c *Collector) finished(d time.Duration) {
	if c == nil {
		return
	}
	c.runDuration.Set(d.Seconds())
}
