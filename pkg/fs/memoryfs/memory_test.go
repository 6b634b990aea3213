package memoryfs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
)

func newTestBackend(t *testing.T) (*Memory, *fs.StatsRegistry) {
	t.Helper()
	stats := fs.NewStatsRegistry()
	m, err := New("mem:///", stats)
	require.NoError(t, err)
	return m, stats
}

func writeFile(t *testing.T, m *Memory, path, content string, opts ...fs.CreateOption) {
	t.Helper()
	opts = append([]fs.CreateOption{fs.Permission(0644)}, opts...)
	w, err := fs.Create(context.Background(), m, fs.NewPath(path), fs.FlagCreate, opts...)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readFile(t *testing.T, m *Memory, path string) string {
	t.Helper()
	r, err := fs.Open(context.Background(), m, fs.NewPath(path))
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestMkdirAndList(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/a"), 0755, false))
	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/a/b"), 0755, false))
	writeFile(t, m, "/a/file", "data")

	entries, err := m.List(ctx, fs.NewPath("/a"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Entries come back sorted by name with fully qualified paths.
	assert.Equal(t, "mem:///a/b", entries[0].Path.String())
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "mem:///a/file", entries[1].Path.String())
	assert.False(t, entries[1].IsDir)
	assert.Equal(t, int64(4), entries[1].Size)
}

func TestMkdirErrors(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	err := m.Mkdir(ctx, fs.NewPath("/"), 0755, false)
	assert.True(t, fs.HasCode(err, fs.ErrAlreadyExists), "mkdir root: %v", err)

	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/a"), 0755, false))
	err = m.Mkdir(ctx, fs.NewPath("/a"), 0755, false)
	assert.True(t, fs.HasCode(err, fs.ErrAlreadyExists), "mkdir existing: %v", err)

	err = m.Mkdir(ctx, fs.NewPath("/missing/child"), 0755, false)
	assert.True(t, fs.IsNotFound(err), "mkdir without parent: %v", err)

	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/x/y/z"), 0755, true))
	st, err := m.Status(ctx, fs.NewPath("/x/y"))
	require.NoError(t, err)
	assert.True(t, st.IsDir)
}

func TestCreateFlags(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	writeFile(t, m, "/f", "one")

	// Plain create of an existing file fails.
	_, err := fs.Create(ctx, m, fs.NewPath("/f"), fs.FlagCreate, fs.Permission(0644))
	assert.True(t, fs.HasCode(err, fs.ErrAlreadyExists), "create existing: %v", err)

	// Overwrite replaces the contents.
	w, err := fs.Create(ctx, m, fs.NewPath("/f"), fs.FlagCreate|fs.FlagOverwrite, fs.Permission(0644))
	require.NoError(t, err)
	_, err = w.Write([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "two", readFile(t, m, "/f"))

	// Append extends the contents.
	w, err = fs.Create(ctx, m, fs.NewPath("/f"), fs.FlagAppend, fs.Permission(0644))
	require.NoError(t, err)
	_, err = w.Write([]byte("-three"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "two-three", readFile(t, m, "/f"))

	// Append without create on a missing file fails.
	_, err = fs.Create(ctx, m, fs.NewPath("/missing"), fs.FlagAppend, fs.Permission(0644))
	assert.True(t, fs.IsNotFound(err), "append missing: %v", err)

	// Creating over a directory is a structural error.
	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/d"), 0755, false))
	_, err = fs.Create(ctx, m, fs.NewPath("/d"), fs.FlagCreate|fs.FlagOverwrite, fs.Permission(0644))
	assert.True(t, fs.HasCode(err, fs.ErrStructuralMismatch), "create over dir: %v", err)
}

func TestCreateParent(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := fs.Create(ctx, m, fs.NewPath("/p/q/f"), fs.FlagCreate, fs.Permission(0644))
	assert.True(t, fs.IsNotFound(err), "create without parent: %v", err)

	writeFile(t, m, "/p/q/f", "data", fs.CreateParent(true))
	st, err := m.Status(ctx, fs.NewPath("/p/q"))
	require.NoError(t, err)
	assert.True(t, st.IsDir)
}

func TestWriteVisibleOnlyAfterClose(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	w, err := fs.Create(ctx, m, fs.NewPath("/f"), fs.FlagCreate, fs.Permission(0644))
	require.NoError(t, err)
	_, err = w.Write([]byte("pending"))
	require.NoError(t, err)

	_, err = m.Status(ctx, fs.NewPath("/f"))
	assert.True(t, fs.IsNotFound(err), "file visible before close: %v", err)

	require.NoError(t, w.Close())
	assert.Equal(t, "pending", readFile(t, m, "/f"))
}

func TestDelete(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/d"), 0755, false))
	writeFile(t, m, "/d/f", "data")

	_, err := m.Delete(ctx, fs.NewPath("/d"), false)
	assert.True(t, fs.HasCode(err, fs.ErrNotEmpty), "non-recursive non-empty delete: %v", err)

	removed, err := m.Delete(ctx, fs.NewPath("/d"), true)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = m.Status(ctx, fs.NewPath("/d"))
	assert.True(t, fs.IsNotFound(err))

	_, err = m.Delete(ctx, fs.NewPath("/d"), false)
	assert.True(t, fs.IsNotFound(err), "delete missing: %v", err)
}

func TestDeleteRoot(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	writeFile(t, m, "/f", "data")

	_, err := m.Delete(ctx, fs.NewPath("/"), false)
	assert.True(t, fs.HasCode(err, fs.ErrNotEmpty), "non-recursive root delete: %v", err)

	removed, err := m.Delete(ctx, fs.NewPath("/"), true)
	require.NoError(t, err)
	assert.True(t, removed)

	entries, err := m.List(ctx, fs.NewPath("/"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenameThroughContractLayer(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, m.Mkdir(ctx, fs.NewPath("/d"), 0755, false))
	writeFile(t, m, "/d/f", "data")

	require.NoError(t, fs.Rename(ctx, m, fs.NewPath("/d"), fs.NewPath("/moved"), false))
	assert.Equal(t, "data", readFile(t, m, "/moved/f"))

	_, err := m.Status(ctx, fs.NewPath("/d"))
	assert.True(t, fs.IsNotFound(err))

	// The backend primitive refuses an existing destination on its own.
	writeFile(t, m, "/a", "a")
	writeFile(t, m, "/b", "b")
	err = m.RenameAtomic(ctx, fs.NewPath("/a"), fs.NewPath("/b"))
	assert.True(t, fs.HasCode(err, fs.ErrAlreadyExists), "atomic rename onto existing: %v", err)

	// With overwrite the contract layer clears the destination first.
	require.NoError(t, fs.Rename(ctx, m, fs.NewPath("/a"), fs.NewPath("/b"), true))
	assert.Equal(t, "a", readFile(t, m, "/b"))
}

func TestSymlinks(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	writeFile(t, m, "/target", "data")
	require.NoError(t, fs.CreateSymlink(ctx, m, fs.NewPath("/target"), fs.NewPath("/link"), false))

	// Status follows the link, LinkStatus does not.
	st, err := m.Status(ctx, fs.NewPath("/link"))
	require.NoError(t, err)
	assert.False(t, st.IsSymlink())
	assert.Equal(t, int64(4), st.Size)

	lst, err := m.LinkStatus(ctx, fs.NewPath("/link"))
	require.NoError(t, err)
	require.True(t, lst.IsSymlink())
	assert.Equal(t, "/target", lst.Symlink.PathPart())

	target, err := m.LinkTarget(ctx, fs.NewPath("/link"))
	require.NoError(t, err)
	assert.Equal(t, "/target", target.PathPart())

	_, err = m.LinkTarget(ctx, fs.NewPath("/target"))
	assert.True(t, fs.HasCode(err, fs.ErrInvalidArgument), "LinkTarget on file: %v", err)

	// Dangling links resolve their status lazily.
	require.NoError(t, fs.CreateSymlink(ctx, m, fs.NewPath("/nowhere"), fs.NewPath("/dangling"), false))
	_, err = m.Status(ctx, fs.NewPath("/dangling"))
	assert.True(t, fs.IsNotFound(err), "status of dangling link: %v", err)
}

func TestSymlinkLoopBounded(t *testing.T) {
	m, _ := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, fs.CreateSymlink(ctx, m, fs.NewPath("/b"), fs.NewPath("/a"), false))
	require.NoError(t, fs.CreateSymlink(ctx, m, fs.NewPath("/a"), fs.NewPath("/b"), false))

	_, err := m.Status(ctx, fs.NewPath("/a"))
	assert.True(t, fs.HasCode(err, fs.ErrInvalidPath), "symlink loop: %v", err)
}

func TestStatisticsCounters(t *testing.T) {
	m, stats := newTestBackend(t)
	ctx := context.Background()

	writeFile(t, m, "/f", "12345")
	content := readFile(t, m, "/f")
	require.Equal(t, "12345", content)

	_, err := m.Status(ctx, fs.NewPath("/f"))
	require.NoError(t, err)

	snapshots := stats.SnapshotAll()
	require.Len(t, snapshots, 1)
	for _, snap := range snapshots {
		assert.Equal(t, int64(5), snap.BytesWritten)
		assert.Equal(t, int64(5), snap.BytesRead)
		assert.GreaterOrEqual(t, snap.WriteOps, int64(1))
		assert.GreaterOrEqual(t, snap.ReadOps, int64(2))
	}
}

func TestForeignPathRejected(t *testing.T) {
	m, _ := newTestBackend(t)

	foreign, err := fs.ParsePath("s3://bucket/f")
	require.NoError(t, err)
	_, err = m.Status(context.Background(), foreign)
	assert.True(t, fs.HasCode(err, fs.ErrInvalidPath), "foreign path: %v", err)
}
