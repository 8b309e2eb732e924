package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promCollector exports reader metrics to a Prometheus registry.
type promCollector struct {
	registry *prometheus.Registry

	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	reads        *prometheus.CounterVec
	readBytes    *prometheus.CounterVec
	readDuration *prometheus.HistogramVec
}

func newPromCollector() *promCollector {
	c := &promCollector{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshfeat",
			Name:      "loads_total",
			Help:      "Metadata, index and zone-table loads.",
		}, []string{"kind", "status"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meshfeat",
			Name:      "load_duration_seconds",
			Help:      "Load latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshfeat",
			Name:      "reads_total",
			Help:      "Feature read operations.",
		}, []string{"op", "status"}),
		readBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshfeat",
			Name:      "read_bytes_total",
			Help:      "Feature bytes read.",
		}, []string{"op"}),
		readDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meshfeat",
			Name:      "read_duration_seconds",
			Help:      "Feature read latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	c.registry.MustRegister(c.loads, c.loadDuration, c.reads, c.readBytes, c.readDuration)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *promCollector) RecordLoad(kind string, d time.Duration, err error) {
	c.loads.WithLabelValues(kind, status(err)).Inc()
	c.loadDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (c *promCollector) RecordRead(op string, bytes int, d time.Duration, err error) {
	c.reads.WithLabelValues(op, status(err)).Inc()
	c.readBytes.WithLabelValues(op).Add(float64(bytes))
	c.readDuration.WithLabelValues(op).Observe(d.Seconds())
}

// writeTextfile writes the registry in node-exporter textfile format.
func (c *promCollector) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
