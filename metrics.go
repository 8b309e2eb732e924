package meshfeat

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordLoad is called after each metadata, index or zone-table load.
	// kind is one of "metadata", "index" or "zones".
	RecordLoad(kind string, duration time.Duration, err error)

	// RecordRead is called after each feature read operation.
	// op names the Reader method, bytes is the number of feature bytes read.
	RecordRead(op string, bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRead(string, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount      atomic.Int64
	LoadErrors     atomic.Int64
	LoadTotalNanos atomic.Int64
	ReadCount      atomic.Int64
	ReadErrors     atomic.Int64
	ReadBytes      atomic.Int64
	ReadTotalNanos atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ string, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(_ string, bytes int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(bytes))
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:    b.LoadCount.Load(),
		LoadErrors:   b.LoadErrors.Load(),
		LoadAvgNanos: avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		ReadCount:    b.ReadCount.Load(),
		ReadErrors:   b.ReadErrors.Load(),
		ReadBytes:    b.ReadBytes.Load(),
		ReadAvgNanos: avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount    int64
	LoadErrors   int64
	LoadAvgNanos int64
	ReadCount    int64
	ReadErrors   int64
	ReadBytes    int64
	ReadAvgNanos int64
}
