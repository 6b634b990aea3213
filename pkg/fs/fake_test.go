package fs

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"
)

// fakeBackend is a minimal map-backed backend for exercising the contract
// layer. It records rename and delete calls so tests can assert on the
// protocol's side effects.
type fakeBackend struct {
	Base

	entries map[string]*FileStatus
	data    map[string][]byte

	renames [][2]string
	deletes []string

	// statusCalls counts LinkStatus invocations, used by the registry
	// memoization test.
	statusCalls int
}

func newFakeBackend(t *testing.T, rawURI, scheme string, authorityNeeded bool, defaultPort int, stats *StatsRegistry) *fakeBackend {
	t.Helper()
	base, err := NewBase(rawURI, scheme, authorityNeeded, defaultPort, stats)
	if err != nil {
		t.Fatalf("NewBase(%q) failed: %v", rawURI, err)
	}
	f := &fakeBackend{
		Base:    base,
		entries: make(map[string]*FileStatus),
		data:    make(map[string][]byte),
	}
	f.addDir("/")
	return f
}

func (f *fakeBackend) addDir(path string) {
	f.entries[path] = &FileStatus{Path: NewPath(path), IsDir: true, Mode: 0755, ModTime: time.Now()}
}

func (f *fakeBackend) addFile(path string, size int64) {
	f.entries[path] = &FileStatus{Path: NewPath(path), Size: size, Mode: 0644, ModTime: time.Now()}
}

func (f *fakeBackend) addSymlink(path, target string) {
	tp := NewPath(target)
	f.entries[path] = &FileStatus{Path: NewPath(path), Symlink: &tp, Mode: 0777, ModTime: time.Now()}
}

func (f *fakeBackend) SupportsSymlinks() bool { return true }

func (f *fakeBackend) ServerDefaults(context.Context, Path) (ServerDefaults, error) {
	return ServerDefaults{
		BlockSize:         1024,
		BytesPerChecksum:  16,
		ChecksumAlgorithm: ChecksumCRC32C,
		FileBufferSize:    4096,
		Replication:       1,
	}, nil
}

func (f *fakeBackend) Status(ctx context.Context, p Path) (*FileStatus, error) {
	st, err := f.LinkStatus(ctx, p)
	if err != nil {
		return nil, err
	}
	if st.IsSymlink() {
		return f.LinkStatus(ctx, *st.Symlink)
	}
	return st, nil
}

func (f *fakeBackend) LinkStatus(_ context.Context, p Path) (*FileStatus, error) {
	f.statusCalls++
	st, ok := f.entries[p.PathPart()]
	if !ok {
		return nil, Errorf(ErrNotFound, p.String(), "no such file or directory")
	}
	copied := *st
	return &copied, nil
}

func (f *fakeBackend) List(_ context.Context, p Path) ([]FileStatus, error) {
	dir := strings.TrimSuffix(p.PathPart(), "/")
	var out []FileStatus
	for path, st := range f.entries {
		if path == "/" || path == p.PathPart() {
			continue
		}
		rest := strings.TrimPrefix(path, dir+"/")
		if rest == path || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path.PathPart() < out[j].Path.PathPart() })
	return out, nil
}

func (f *fakeBackend) Delete(_ context.Context, p Path, recursive bool) (bool, error) {
	key := p.PathPart()
	if _, ok := f.entries[key]; !ok {
		return false, Errorf(ErrNotFound, p.String(), "no such file or directory")
	}
	delete(f.entries, key)
	f.deletes = append(f.deletes, key)
	return true, nil
}

func (f *fakeBackend) Mkdir(_ context.Context, p Path, permission uint32, _ bool) error {
	if _, ok := f.entries[p.PathPart()]; ok {
		return Errorf(ErrAlreadyExists, p.String(), "directory already exists")
	}
	f.addDir(p.PathPart())
	return nil
}

func (f *fakeBackend) RenameAtomic(_ context.Context, src, dst Path) error {
	st, ok := f.entries[src.PathPart()]
	if !ok {
		return Errorf(ErrNotFound, src.String(), "no such file or directory")
	}
	if _, ok := f.entries[dst.PathPart()]; ok {
		return Errorf(ErrAlreadyExists, dst.String(), "rename destination already exists")
	}
	delete(f.entries, src.PathPart())
	moved := *st
	moved.Path = NewPath(dst.PathPart())
	f.entries[dst.PathPart()] = &moved
	f.renames = append(f.renames, [2]string{src.PathPart(), dst.PathPart()})
	return nil
}

func (f *fakeBackend) CreateFile(_ context.Context, p Path, flags CreateFlag, params *CreateParameters) (io.WriteCloser, error) {
	if _, ok := f.entries[p.PathPart()]; ok && flags&FlagOverwrite == 0 {
		return nil, Errorf(ErrAlreadyExists, p.String(), "file already exists")
	}
	return &fakeWriter{backend: f, path: p.PathPart()}, nil
}

func (f *fakeBackend) Open(_ context.Context, p Path, _ int) (io.ReadCloser, error) {
	data, ok := f.data[p.PathPart()]
	if !ok {
		if _, exists := f.entries[p.PathPart()]; !exists {
			return nil, Errorf(ErrNotFound, p.String(), "no such file or directory")
		}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeWriter struct {
	backend *fakeBackend
	path    string
	buf     bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.backend.data[w.path] = w.buf.Bytes()
	w.backend.addFile(w.path, int64(w.buf.Len()))
	return nil
}
