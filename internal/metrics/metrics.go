// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics registers the counter/gauge/histogram surface named in
// spec §6.5. Exposition (the HTTP /metrics endpoint) is an external
// collaborator's concern, out of scope here; this package only registers
// instruments against a prometheus.Registerer and hands back typed
// accessors for the rest of the core to record against.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets matches spec §6.5's fixed bucket set.
var latencyBuckets = []float64{0.1, 0.5, 1.0, 2.0, 5.0}

// Metrics bundles every instrument named in spec §6.5.
type Metrics struct {
	ReadsReceived      prometheus.Counter
	ReadsProcessed     prometheus.Counter
	ProcessingErrors   *prometheus.CounterVec // labels: type
	ReaderConnections  *prometheus.CounterVec // labels: status
	ConnectionErrors   *prometheus.CounterVec // labels: reader_id, type
	ReadsTotal         *prometheus.CounterVec // labels: reader_id
	DuplicatesTotal    prometheus.Counter

	QueueSize    prometheus.Gauge
	BufferSize   prometheus.Gauge
	ActiveReaders prometheus.Gauge

	ProcessingTimeSeconds    prometheus.Histogram
	ProcessingLatencySeconds *prometheus.HistogramVec // labels: reader_id
}

// New registers every instrument against reg and returns the bundle. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across test runs.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReadsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfid_reads_received_total",
			Help: "Total raw reads submitted to pipeline ingress, including reads dropped for backpressure.",
		}),
		ReadsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfid_reads_processed_total",
			Help: "Total reads published to the downstream sink.",
		}),
		ProcessingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfid_processing_errors_total",
			Help: "Total processing errors by type.",
		}, []string{"type"}),
		ReaderConnections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfid_reader_connections_total",
			Help: "Total reader connection attempts by resulting status.",
		}, []string{"status"}),
		ConnectionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfid_connection_errors_total",
			Help: "Total reader connection errors by reader and type.",
		}, []string{"reader_id", "type"}),
		ReadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfid_reads_total",
			Help: "Total raw reads observed per reader.",
		}, []string{"reader_id"}),
		DuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfid_duplicates_total",
			Help: "Total reads classified as duplicates by the deduplicator.",
		}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rfid_queue_size",
			Help: "Current depth of the pipeline ingress queue.",
		}),
		BufferSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rfid_buffer_size",
			Help: "Current total buffered reads across all dedup tag buckets.",
		}),
		ActiveReaders: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rfid_active_readers",
			Help: "Current count of readers in ONLINE status.",
		}),
		ProcessingTimeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rfid_processing_time_seconds",
			Help:    "Wall time to process and publish one batch.",
			Buckets: latencyBuckets,
		}),
		ProcessingLatencySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfid_processing_latency_seconds",
			Help:    "Time from a tag observation arriving at the Adapter to its hand-off to pipeline ingress, per reader.",
			Buckets: latencyBuckets,
		}, []string{"reader_id"}),
	}
}
