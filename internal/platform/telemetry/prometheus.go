package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusSource is read on every scrape.
type StatusSource struct {
	// Quotes returns the size of the collection.
	Quotes func() int

	// Sync returns cumulative cycle and failure counts and the time of the
	// last successful cycle (zero if none).
	Sync func() (cycles, failures int64, lastSuccess time.Time)
}

// StatusCollector exposes collection and sync engine state to Prometheus.
type StatusCollector struct {
	src StatusSource

	quotes      *prometheus.Desc
	cycles      *prometheus.Desc
	failures    *prometheus.Desc
	lastSuccess *prometheus.Desc
}

// NewStatusCollector creates a collector; a nil Sync func omits the sync series.
func NewStatusCollector(namespace string, src StatusSource) *StatusCollector {
	return &StatusCollector{
		src: src,
		quotes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "collection", "quotes"),
			"Number of quotes in the collection.", nil, nil),
		cycles: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sync", "cycles_total"),
			"Sync cycles run since start.", nil, nil),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sync", "failures_total"),
			"Sync cycles that left the collection unchanged because of an error.", nil, nil),
		lastSuccess: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sync", "last_success_timestamp_seconds"),
			"Unix time of the last successful sync cycle.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.quotes

	if c.src.Sync != nil {
		ch <- c.cycles
		ch <- c.failures
		ch <- c.lastSuccess
	}
}

// Collect implements prometheus.Collector.
func (c *StatusCollector) Collect(ch chan<- prometheus.Metric) {
	if c.src.Quotes != nil {
		ch <- prometheus.MustNewConstMetric(c.quotes, prometheus.GaugeValue, float64(c.src.Quotes()))
	}

	if c.src.Sync == nil {
		return
	}

	cycles, failures, last := c.src.Sync()

	ch <- prometheus.MustNewConstMetric(c.cycles, prometheus.CounterValue, float64(cycles))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(failures))

	var ts float64
	if !last.IsZero() {
		ts = float64(last.UnixNano()) / float64(time.Second)
	}

	ch <- prometheus.MustNewConstMetric(c.lastSuccess, prometheus.GaugeValue, ts)
}
