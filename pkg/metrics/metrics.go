// Package metrics defines the Prometheus collectors recorded by the index
// builder and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a build. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	BuildsTotal        *prometheus.CounterVec
	BuildDuration      prometheus.Histogram
	ShardBuildDuration *prometheus.HistogramVec
	DocsIndexedTotal   prometheus.Counter
	MergesTotal        prometheus.Counter
	IndexTerms         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index builds by final status (done, failed).",
			},
			[]string{"status"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall time of a full build including reduction.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		ShardBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_shard_build_duration_seconds",
				Help:    "Wall time of a single shard worker.",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"shard_id"},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_docs_indexed_total",
				Help: "Total documents tokenized and indexed by shard workers.",
			},
		),
		MergesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_merges_total",
				Help: "Total pairwise index merges performed during reduction.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the most recently built index.",
			},
		),
	}

	reg.MustRegister(
		m.BuildsTotal,
		m.BuildDuration,
		m.ShardBuildDuration,
		m.DocsIndexedTotal,
		m.MergesTotal,
		m.IndexTerms,
	)
	return m
}

func (m *Metrics) ObserveShard(shardID int, elapsed time.Duration, docs int) {
	if m == nil {
		return
	}
	m.ShardBuildDuration.WithLabelValues(strconv.Itoa(shardID)).Observe(elapsed.Seconds())
	m.DocsIndexedTotal.Add(float64(docs))
}

func (m *Metrics) ObserveMerges(n int) {
	if m == nil {
		return
	}
	m.MergesTotal.Add(float64(n))
}

func (m *Metrics) ObserveBuild(status string, elapsed time.Duration, terms int) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues(status).Inc()
	m.BuildDuration.Observe(elapsed.Seconds())
	if status == "done" {
		m.IndexTerms.Set(float64(terms))
	}
}

// Handler returns the Prometheus scrape HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
