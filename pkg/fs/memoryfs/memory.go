// Package memoryfs provides an in-memory reference backend.
//
// The backend keeps the whole tree in process memory behind a single
// read-write mutex. It is suitable for tests, development environments, and
// ephemeral filesystems where persistence is not required. It is the only
// reference backend with symlink support.
package memoryfs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "mem"

// Server defaults reported for every path. The block size is a multiple of
// the checksum chunk size, as the create-option resolver requires.
const (
	defaultBlockSize        = 128 * 1024 * 1024
	defaultBytesPerChecksum = 512
	defaultFileBufferSize   = 4096
	defaultReplication      = 1
)

// maxSymlinkHops bounds symlink chains during final-link resolution.
const maxSymlinkHops = 16

// node is one entry of the in-memory tree. A node is exactly one of a
// directory (children non-nil), a symlink (symlink non-nil), or a regular
// file.
type node struct {
	dir      bool
	mode     uint32
	data     []byte
	symlink  *fs.Path
	children map[string]*node
	modTime  time.Time
}

func newDirNode(mode uint32, now time.Time) *node {
	return &node{dir: true, mode: mode, children: make(map[string]*node), modTime: now}
}

// Memory implements fs.Backend over an in-memory tree.
//
// All operations are protected by a single read-write mutex, making the
// backend safe for concurrent use. The coarse lock is simple and correct;
// per-directory locking is not worth it at the scales this backend serves.
type Memory struct {
	fs.Base

	mu   sync.RWMutex
	root *node
}

// New creates an empty in-memory backend addressed by the given URI. The URI
// carries no authority; "mem:///" is the canonical form.
func New(rawURI string, stats *fs.StatsRegistry) (*Memory, error) {
	base, err := fs.NewBase(rawURI, Scheme, false, -1, stats)
	if err != nil {
		return nil, err
	}
	return &Memory{
		Base: base,
		root: newDirNode(0755, time.Now()),
	}, nil
}

// Factory adapts New to the registry's factory signature.
func Factory(_ context.Context, rawURI string, stats *fs.StatsRegistry) (fs.Backend, error) {
	return New(rawURI, stats)
}

// SupportsSymlinks reports that symbolic links are stored natively.
func (m *Memory) SupportsSymlinks() bool { return true }

// ServerDefaults returns the static defaults of the in-memory backend.
func (m *Memory) ServerDefaults(_ context.Context, _ fs.Path) (fs.ServerDefaults, error) {
	return fs.ServerDefaults{
		BlockSize:         defaultBlockSize,
		BytesPerChecksum:  defaultBytesPerChecksum,
		ChecksumAlgorithm: fs.ChecksumCRC32C,
		FileBufferSize:    defaultFileBufferSize,
		Replication:       defaultReplication,
	}, nil
}

// segments splits a validated path part into its name components.
func segments(pathPart string) []string {
	var out []string
	for _, s := range strings.Split(pathPart, fs.Separator) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// lookup walks the tree to the node named by the segments without following
// any symlink. Must be called with the lock held.
func (m *Memory) lookup(segs []string, path fs.Path) (*node, error) {
	current := m.root
	for i, seg := range segs {
		if !current.dir {
			return nil, fs.Errorf(fs.ErrParentNotDirectory,
				path.String(), "%s is not a directory", strings.Join(segs[:i], fs.Separator))
		}
		child, ok := current.children[seg]
		if !ok {
			return nil, fs.Errorf(fs.ErrNotFound, path.String(), "no such file or directory")
		}
		current = child
	}
	return current, nil
}

// resolve is lookup plus final-symlink resolution, bounded by maxSymlinkHops.
// Must be called with the lock held.
func (m *Memory) resolve(p fs.Path) (*node, error) {
	for hop := 0; ; hop++ {
		if hop >= maxSymlinkHops {
			return nil, fs.Errorf(fs.ErrInvalidPath, p.String(), "too many levels of symbolic links")
		}
		pathPart, err := fs.URIPath(m, p)
		if err != nil {
			return nil, err
		}
		n, err := m.lookup(segments(pathPart), p)
		if err != nil {
			return nil, err
		}
		if n.symlink == nil {
			return n, nil
		}
		p = *n.symlink
	}
}

// lookupParent returns the directory that would contain the final segment of
// the path, optionally creating missing intermediate directories. Must be
// called with the write lock held when create is true, the read lock
// otherwise.
func (m *Memory) lookupParent(segs []string, path fs.Path, create bool, mode uint32) (*node, error) {
	current := m.root
	for i := 0; i < len(segs)-1; i++ {
		child, ok := current.children[segs[i]]
		if !ok {
			if !create {
				return nil, fs.Errorf(fs.ErrNotFound, path.String(),
					"parent %s does not exist", strings.Join(segs[:i+1], fs.Separator))
			}
			child = newDirNode(mode, time.Now())
			current.children[segs[i]] = child
		}
		if !child.dir {
			return nil, fs.Errorf(fs.ErrParentNotDirectory, path.String(),
				"%s is not a directory", strings.Join(segs[:i+1], fs.Separator))
		}
		current = child
	}
	return current, nil
}

// status builds the FileStatus for a node at a fully qualified path.
func (m *Memory) status(p fs.Path, n *node) *fs.FileStatus {
	qualified, _ := fs.MakeQualified(m, p)
	return &fs.FileStatus{
		Path:        qualified,
		Size:        int64(len(n.data)),
		Mode:        n.mode,
		IsDir:       n.dir,
		Symlink:     n.symlink,
		Replication: defaultReplication,
		BlockSize:   defaultBlockSize,
		ModTime:     n.modTime,
	}
}
