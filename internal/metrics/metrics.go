// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics instruments batch dispatch with Prometheus collectors.
// A CLI run has no scrape endpoint, so the registry is written to a
// node_exporter textfile after the run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/convertly/pkg/types"
)

const namespace = "convertly"

// Dispatch holds the dispatch collectors. It implements batch.Recorder.
type Dispatch struct {
	gatherer prometheus.Gatherer

	dispatched  *prometheus.CounterVec
	settled     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	uploadBytes *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Dispatch {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers the collectors with r and gathers from g.
func NewWith(r prometheus.Registerer, g prometheus.Gatherer) *Dispatch {
	d := &Dispatch{
		gatherer: g,
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_total",
			Help:      "Conversion requests sent, by workflow.",
		}, []string{"workflow"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_total",
			Help:      "Items settled, by workflow and final status.",
		}, []string{"workflow", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from dispatch to settlement.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"workflow"}),
		uploadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_bytes",
			Help:      "Payload size of conversion requests.",
			Buckets:   prometheus.ExponentialBuckets(1024, 10, 7),
		}, []string{"workflow"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Conversion requests awaiting a response.",
		}, []string{"workflow"}),
	}
	r.MustRegister(d.dispatched, d.settled, d.duration, d.uploadBytes, d.inFlight)
	return d
}

func (d *Dispatch) Dispatched(workflow string, bytes int64) {
	d.dispatched.WithLabelValues(workflow).Inc()
	d.uploadBytes.WithLabelValues(workflow).Observe(float64(bytes))
}

func (d *Dispatch) Settled(workflow string, status types.Status, elapsed time.Duration) {
	d.settled.WithLabelValues(workflow, string(status)).Inc()
	d.duration.WithLabelValues(workflow).Observe(elapsed.Seconds())
}

func (d *Dispatch) InFlight(workflow string, delta int) {
	d.inFlight.WithLabelValues(workflow).Add(float64(delta))
}

// WriteTextfile writes the current metric values to path in the text
// exposition format.
func (d *Dispatch) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, d.gatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
