package memoryfs

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Mkdir creates the directory at p. Missing parents are created when
// createParent is true and fail the call otherwise. Creating an existing
// directory is an error.
func (m *Memory) Mkdir(ctx context.Context, p fs.Path, permission uint32, createParent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Statistics().IncrementWriteOps(1)

	pathPart, err := fs.URIPath(m, p)
	if err != nil {
		return err
	}
	segs := segments(pathPart)
	if len(segs) == 0 {
		return fs.Errorf(fs.ErrAlreadyExists, p.String(), "root directory already exists")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, err := m.lookupParent(segs, p, createParent, permission)
	if err != nil {
		return err
	}
	name := segs[len(segs)-1]
	if _, exists := parent.children[name]; exists {
		return fs.Errorf(fs.ErrAlreadyExists, p.String(), "directory already exists")
	}
	parent.children[name] = newDirNode(permission, time.Now())
	return nil
}

// Delete removes the entry at p. A non-recursive delete of a non-empty
// directory fails with ErrNotEmpty. Deleting the root empties it when
// recursive and fails otherwise unless the root is already empty.
func (m *Memory) Delete(ctx context.Context, p fs.Path, recursive bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.Statistics().IncrementWriteOps(1)

	pathPart, err := fs.URIPath(m, p)
	if err != nil {
		return false, err
	}
	segs := segments(pathPart)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(segs) == 0 {
		if len(m.root.children) > 0 && !recursive {
			return false, fs.Errorf(fs.ErrNotEmpty, p.String(), "root directory is not empty")
		}
		removed := len(m.root.children) > 0
		m.root.children = make(map[string]*node)
		return removed, nil
	}

	parent, err := m.lookupParent(segs, p, false, 0)
	if err != nil {
		return false, err
	}
	name := segs[len(segs)-1]
	n, exists := parent.children[name]
	if !exists {
		return false, fs.Errorf(fs.ErrNotFound, p.String(), "no such file or directory")
	}
	if n.dir && len(n.children) > 0 && !recursive {
		return false, fs.Errorf(fs.ErrNotEmpty, p.String(), "directory is not empty")
	}
	delete(parent.children, name)
	parent.modTime = time.Now()
	return true, nil
}

// RenameAtomic moves src to dst in one step under the tree lock. It fails
// with ErrAlreadyExists when the destination is present; overwrite semantics
// live in the contract layer.
func (m *Memory) RenameAtomic(ctx context.Context, src, dst fs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Statistics().IncrementWriteOps(1)

	srcPart, err := fs.URIPath(m, src)
	if err != nil {
		return err
	}
	dstPart, err := fs.URIPath(m, dst)
	if err != nil {
		return err
	}
	srcSegs := segments(srcPart)
	dstSegs := segments(dstPart)
	if len(srcSegs) == 0 {
		return fs.Errorf(fs.ErrInvalidPath, src.String(), "cannot rename the root directory")
	}
	if len(dstSegs) == 0 {
		return fs.Errorf(fs.ErrAlreadyExists, dst.String(), "destination is the root directory")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	srcParent, err := m.lookupParent(srcSegs, src, false, 0)
	if err != nil {
		return err
	}
	srcName := srcSegs[len(srcSegs)-1]
	n, exists := srcParent.children[srcName]
	if !exists {
		return fs.Errorf(fs.ErrNotFound, src.String(), "no such file or directory")
	}

	dstParent, err := m.lookupParent(dstSegs, dst, false, 0)
	if err != nil {
		return err
	}
	dstName := dstSegs[len(dstSegs)-1]
	if _, exists := dstParent.children[dstName]; exists {
		return fs.Errorf(fs.ErrAlreadyExists, dst.String(), "rename destination already exists")
	}

	delete(srcParent.children, srcName)
	dstParent.children[dstName] = n
	now := time.Now()
	srcParent.modTime = now
	dstParent.modTime = now
	return nil
}

// CreateFile opens a write stream at p. Existence checks run at open time;
// the data becomes visible atomically when the returned writer is closed.
func (m *Memory) CreateFile(ctx context.Context, p fs.Path, flags fs.CreateFlag, params *fs.CreateParameters) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Statistics().IncrementWriteOps(1)

	pathPart, err := fs.URIPath(m, p)
	if err != nil {
		return nil, err
	}
	segs := segments(pathPart)
	if len(segs) == 0 {
		return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, err := m.lookupParent(segs, p, params.CreateParent, params.Permission)
	if err != nil {
		return nil, err
	}
	name := segs[len(segs)-1]

	w := &memWriter{
		fs:     m,
		parent: parent,
		name:   name,
		path:   p,
		mode:   params.Permission,
	}

	if existing, exists := parent.children[name]; exists {
		if existing.dir {
			return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
		}
		switch {
		case flags&fs.FlagAppend != 0:
			w.buf.Write(existing.data)
		case flags&fs.FlagOverwrite != 0:
			// Truncate on close.
		default:
			return nil, fs.Errorf(fs.ErrAlreadyExists, p.String(), "file already exists")
		}
	} else if flags&fs.FlagCreate == 0 {
		return nil, fs.Errorf(fs.ErrNotFound, p.String(), "no such file or directory")
	}

	w.progress = params.Progress
	return w, nil
}

// memWriter buffers writes and commits them to the tree on Close.
type memWriter struct {
	fs       *Memory
	parent   *node
	name     string
	path     fs.Path
	mode     uint32
	buf      bytes.Buffer
	progress fs.ProgressFunc
	closed   bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.Errorf(fs.ErrInvalidArgument, w.path.String(), "write to closed file")
	}
	n, err := w.buf.Write(p)
	if n > 0 {
		w.fs.Statistics().AddBytesWritten(int64(n))
		if w.progress != nil {
			w.progress(int64(n))
		}
	}
	return n, err
}

func (w *memWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()

	existing, exists := w.parent.children[w.name]
	if exists && existing.dir {
		return fs.Errorf(fs.ErrStructuralMismatch, w.path.String(), "is a directory")
	}
	w.parent.children[w.name] = &node{
		mode:    w.mode,
		data:    w.buf.Bytes(),
		modTime: time.Now(),
	}
	w.parent.modTime = time.Now()
	return nil
}

// CreateSymlink stores a symbolic link at link pointing to target. The target
// is stored verbatim and resolved lazily on access.
func (m *Memory) CreateSymlink(ctx context.Context, target, link fs.Path, createParent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Statistics().IncrementWriteOps(1)

	pathPart, err := fs.URIPath(m, link)
	if err != nil {
		return err
	}
	segs := segments(pathPart)
	if len(segs) == 0 {
		return fs.Errorf(fs.ErrAlreadyExists, link.String(), "root directory already exists")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, err := m.lookupParent(segs, link, createParent, 0755)
	if err != nil {
		return err
	}
	name := segs[len(segs)-1]
	if _, exists := parent.children[name]; exists {
		return fs.Errorf(fs.ErrAlreadyExists, link.String(), "link path already exists")
	}
	t := target
	parent.children[name] = &node{symlink: &t, mode: 0777, modTime: time.Now()}
	return nil
}

// LinkTarget returns the stored target of the symlink at p.
func (m *Memory) LinkTarget(ctx context.Context, p fs.Path) (fs.Path, error) {
	if err := ctx.Err(); err != nil {
		return fs.Path{}, err
	}
	m.Statistics().IncrementReadOps(1)

	pathPart, err := fs.URIPath(m, p)
	if err != nil {
		return fs.Path{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.lookup(segments(pathPart), p)
	if err != nil {
		return fs.Path{}, err
	}
	if n.symlink == nil {
		return fs.Path{}, fs.Errorf(fs.ErrInvalidArgument, p.String(), "not a symlink")
	}
	return *n.symlink, nil
}
