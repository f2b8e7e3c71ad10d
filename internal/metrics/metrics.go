// Package metrics exposes run counters through a private prometheus registry.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values for MessagesTotal.
const (
	ResultProcessed = "processed"
	ResultEmpty     = "empty"
	ResultFailed    = "failed"
	ResultCached    = "cached"
)

type Metrics struct {
	Registry *prometheus.Registry

	MessagesTotal     *prometheus.CounterVec
	TokensTotal       prometheus.Counter
	ListErrorsTotal   prometheus.Counter
	PartsSkippedTotal prometheus.Counter
	FetchDuration     prometheus.Histogram
	LastRunTimestamp  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailcloud_messages_total",
				Help: "Messages handled, by result",
			},
			[]string{"result"},
		),

		TokensTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mailcloud_tokens_total",
				Help: "Normalized tokens counted",
			},
		),

		ListErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mailcloud_list_errors_total",
				Help: "Message listings that ended early with an error",
			},
		),

		PartsSkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mailcloud_parts_skipped_total",
				Help: "text/plain parts that could not be decoded",
			},
		),

		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailcloud_fetch_duration_seconds",
				Help:    "Time spent fetching a single message",
				Buckets: prometheus.DefBuckets,
			},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mailcloud_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
}

// Nil receivers are accepted so callers can leave metrics disabled.

func (m *Metrics) RecordMessage(result string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTokens(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TokensTotal.Add(float64(n))
}

func (m *Metrics) RecordListError() {
	if m == nil {
		return
	}
	m.ListErrorsTotal.Inc()
}

func (m *Metrics) RecordPartsSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PartsSkippedTotal.Add(float64(n))
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) MarkRunFinished(t time.Time) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(t.Unix()))
}

// WriteTextfile writes every metric in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
