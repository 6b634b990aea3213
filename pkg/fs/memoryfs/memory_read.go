package memoryfs

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Status returns the status of the entry at p, following a final symlink.
func (m *Memory) Status(ctx context.Context, p fs.Path) (*fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Statistics().IncrementReadOps(1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	return m.status(p, n), nil
}

// LinkStatus returns the status of the entry at p without following a final
// symlink.
func (m *Memory) LinkStatus(ctx context.Context, p fs.Path) (*fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Statistics().IncrementReadOps(1)

	pathPart, err := fs.URIPath(m, p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.lookup(segments(pathPart), p)
	if err != nil {
		return nil, err
	}
	return m.status(p, n), nil
}

// List returns the entries of the directory at p, sorted by name.
func (m *Memory) List(ctx context.Context, p fs.Path) ([]fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Statistics().IncrementReadOps(1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	if !n.dir {
		return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "not a directory")
	}

	qualified, err := fs.MakeQualified(m, p)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.FileStatus, 0, len(n.children))
	for name, child := range n.children {
		entries = append(entries, *m.status(qualified.Child(name), child))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.Name() < entries[j].Path.Name()
	})
	return entries, nil
}

// Open opens a read stream over a copy of the file's contents. The buffer
// size is ignored; reads are served from memory.
func (m *Memory) Open(ctx context.Context, p fs.Path, _ int) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Statistics().IncrementReadOps(1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	if n.dir {
		return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
	}

	// Copy so later writes to the file do not race with this reader.
	data := make([]byte, len(n.data))
	copy(data, n.data)
	return &memReader{Reader: bytes.NewReader(data), stats: m.Statistics()}, nil
}

// memReader counts bytes read into the shared statistics record.
type memReader struct {
	*bytes.Reader
	stats *fs.Statistics
}

func (r *memReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if n > 0 {
		r.stats.AddBytesRead(int64(n))
	}
	return n, err
}

func (r *memReader) Close() error { return nil }
