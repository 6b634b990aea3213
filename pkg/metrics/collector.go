// Package metrics exposes the shared filesystem statistics as Prometheus
// metrics.
//
// The collector reads the statistics registry on every scrape, so there is
// no sampling loop and no extra state to keep in sync; backends keep
// counting into their shared records and scrapes observe the live values.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewBackendCollector(stats))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftfs/driftfs/pkg/fs"
)

// BackendCollector exports one metric family per statistics counter, labeled
// by the (scheme, authority) key of the record.
type BackendCollector struct {
	stats *fs.StatsRegistry

	bytesRead    *prometheus.Desc
	bytesWritten *prometheus.Desc
	readOps      *prometheus.Desc
	writeOps     *prometheus.Desc
}

// NewBackendCollector creates a collector over the given statistics registry.
func NewBackendCollector(stats *fs.StatsRegistry) *BackendCollector {
	return &BackendCollector{
		stats: stats,
		bytesRead: prometheus.NewDesc(
			"driftfs_backend_bytes_read_total",
			"Total bytes read through a backend",
			[]string{"filesystem"}, nil,
		),
		bytesWritten: prometheus.NewDesc(
			"driftfs_backend_bytes_written_total",
			"Total bytes written through a backend",
			[]string{"filesystem"}, nil,
		),
		readOps: prometheus.NewDesc(
			"driftfs_backend_read_operations_total",
			"Total read operations issued to a backend",
			[]string{"filesystem"}, nil,
		),
		writeOps: prometheus.NewDesc(
			"driftfs_backend_write_operations_total",
			"Total write operations issued to a backend",
			[]string{"filesystem"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BackendCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesRead
	ch <- c.bytesWritten
	ch <- c.readOps
	ch <- c.writeOps
}

// Collect implements prometheus.Collector. Each scrape snapshots the live
// registry.
func (c *BackendCollector) Collect(ch chan<- prometheus.Metric) {
	for key, snap := range c.stats.SnapshotAll() {
		ch <- prometheus.MustNewConstMetric(
			c.bytesRead, prometheus.CounterValue, float64(snap.BytesRead), key)
		ch <- prometheus.MustNewConstMetric(
			c.bytesWritten, prometheus.CounterValue, float64(snap.BytesWritten), key)
		ch <- prometheus.MustNewConstMetric(
			c.readOps, prometheus.CounterValue, float64(snap.ReadOps), key)
		ch <- prometheus.MustNewConstMetric(
			c.writeOps, prometheus.CounterValue, float64(snap.WriteOps), key)
	}
}
