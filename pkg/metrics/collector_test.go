package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/driftfs/driftfs/pkg/fs"
)

func TestBackendCollector(t *testing.T) {
	stats := fs.NewStatsRegistry()
	id, err := fs.NewIdentity("mem:///", "mem", false, -1)
	if err != nil {
		t.Fatalf("NewIdentity() failed: %v", err)
	}
	record := stats.Get(id)
	record.AddBytesRead(100)
	record.AddBytesWritten(200)
	record.IncrementReadOps(3)
	record.IncrementWriteOps(4)

	collector := NewBackendCollector(stats)

	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// Four families, one series each.
	if got := testutil.CollectAndCount(collector); got != 4 {
		t.Errorf("CollectAndCount() = %d, want 4", got)
	}

	expected := `
# HELP driftfs_backend_bytes_read_total Total bytes read through a backend
# TYPE driftfs_backend_bytes_read_total counter
driftfs_backend_bytes_read_total{filesystem="mem:///"} 100
# HELP driftfs_backend_bytes_written_total Total bytes written through a backend
# TYPE driftfs_backend_bytes_written_total counter
driftfs_backend_bytes_written_total{filesystem="mem:///"} 200
# HELP driftfs_backend_read_operations_total Total read operations issued to a backend
# TYPE driftfs_backend_read_operations_total counter
driftfs_backend_read_operations_total{filesystem="mem:///"} 3
# HELP driftfs_backend_write_operations_total Total write operations issued to a backend
# TYPE driftfs_backend_write_operations_total counter
driftfs_backend_write_operations_total{filesystem="mem:///"} 4
`
	if err := testutil.CollectAndCompare(collector, strings.NewReader(expected)); err != nil {
		t.Errorf("CollectAndCompare() mismatch: %v", err)
	}
}

func TestBackendCollectorObservesLiveCounters(t *testing.T) {
	stats := fs.NewStatsRegistry()
	id, _ := fs.NewIdentity("mem:///", "mem", false, -1)
	collector := NewBackendCollector(stats)

	stats.Get(id).IncrementReadOps(1)
	if got := testutil.CollectAndCount(collector); got != 4 {
		t.Fatalf("CollectAndCount() = %d, want 4", got)
	}

	// Later increments show up on the next scrape without re-registration.
	stats.Get(id).IncrementReadOps(1)
	expected := `
# HELP driftfs_backend_read_operations_total Total read operations issued to a backend
# TYPE driftfs_backend_read_operations_total counter
driftfs_backend_read_operations_total{filesystem="mem:///"} 2
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"driftfs_backend_read_operations_total")
	if err != nil {
		t.Errorf("CollectAndCompare() mismatch: %v", err)
	}
}
