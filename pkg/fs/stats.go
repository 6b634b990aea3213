package fs

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Statistics holds the mutable operation counters for one
// (scheme, authority) pair. Every backend instance addressing that pair
// shares the same record; the record outlives any single instance and is
// reset only through StatsRegistry.ClearAll.
//
// Counter updates are atomic and may be called concurrently with snapshots.
type Statistics struct {
	scheme       string
	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
	readOps      atomic.Int64
	writeOps     atomic.Int64
}

func newStatistics(scheme string) *Statistics {
	return &Statistics{scheme: scheme}
}

// Scheme returns the scheme the record was created for.
func (s *Statistics) Scheme() string { return s.scheme }

// AddBytesRead adds n to the bytes-read counter.
func (s *Statistics) AddBytesRead(n int64) { s.bytesRead.Add(n) }

// AddBytesWritten adds n to the bytes-written counter.
func (s *Statistics) AddBytesWritten(n int64) { s.bytesWritten.Add(n) }

// IncrementReadOps adds n to the read-operation counter.
func (s *Statistics) IncrementReadOps(n int64) { s.readOps.Add(n) }

// IncrementWriteOps adds n to the write-operation counter.
func (s *Statistics) IncrementWriteOps(n int64) { s.writeOps.Add(n) }

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	s.bytesRead.Store(0)
	s.bytesWritten.Store(0)
	s.readOps.Store(0)
	s.writeOps.Store(0)
}

// Snapshot returns an independent copy of the current counter values.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Scheme:       s.scheme,
		BytesRead:    s.bytesRead.Load(),
		BytesWritten: s.bytesWritten.Load(),
		ReadOps:      s.readOps.Load(),
		WriteOps:     s.writeOps.Load(),
	}
}

// String renders the counters for logs and the stats CLI command.
func (s *Statistics) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf("%d bytes read, %d bytes written, %d read ops, %d write ops",
		snap.BytesRead, snap.BytesWritten, snap.ReadOps, snap.WriteOps)
}

// StatisticsSnapshot is an immutable copy of one record's counters.
// Mutating a snapshot never affects the live registry.
type StatisticsSnapshot struct {
	Scheme       string
	BytesRead    int64
	BytesWritten int64
	ReadOps      int64
	WriteOps     int64
}

// StatsRegistry holds the shared statistics records, keyed by
// (scheme, authority-or-root-marker), ignoring path and port.
//
// The registry has an explicit lifecycle: construct one at process start,
// inject it into the backend Registry (and through it into every backend),
// and let it die with the process. Tests construct isolated registries
// instead of sharing process globals.
//
// All operations are serialized by one coarse lock, held only for the
// duration of a lookup-or-insert; contention is expected to be rare.
type StatsRegistry struct {
	mu    sync.Mutex
	table map[string]*Statistics
}

// NewStatsRegistry creates an empty statistics registry.
func NewStatsRegistry() *StatsRegistry {
	return &StatsRegistry{table: make(map[string]*Statistics)}
}

// Get returns the shared record for the identity's (scheme, authority)
// pair, lazily creating a zero-valued record on first access.
func (r *StatsRegistry) Get(id Identity) *Statistics {
	key := id.statsKey()

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.table[key]
	if !ok {
		record = newStatistics(id.Scheme())
		r.table[key] = record
	}
	return record
}

// ClearAll zeroes every shared record. Records stay registered; backends
// holding them keep counting into the zeroed counters.
func (r *StatsRegistry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.table {
		record.Reset()
	}
}

// SnapshotAll returns independent copies of every record, keyed by the
// registry key. Callers cannot mutate the live registry through the result.
func (r *StatsRegistry) SnapshotAll() map[string]StatisticsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make(map[string]StatisticsSnapshot, len(r.table))
	for key, record := range r.table {
		snapshots[key] = record.Snapshot()
	}
	return snapshots
}
